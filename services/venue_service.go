package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/game-booking-system/models"
	"github.com/Dosada05/game-booking-system/repositories"
)

// VenueInput — одна площадка из пакета загрузки каталога.
type VenueInput struct {
	Name            string            `json:"name"`
	Address         string            `json:"address"`
	Rating          float64           `json:"rating"`
	SportsAvailable []VenueSportInput `json:"sports_available"`
}

type VenueSportInput struct {
	Name         string       `json:"name"`
	PricePerSlot float64      `json:"price_per_slot"`
	Courts       []CourtInput `json:"courts"`
}

type CourtInput struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// VenueIngestResult — итог пакетной загрузки: какие площадки сохранены,
// какие пропущены из-за совпадения имени.
type VenueIngestResult struct {
	Saved   []string `json:"saved"`
	Skipped []string `json:"skipped"`
}

// VenueService — чтение каталога площадок и его пакетная загрузка.
// Список броней площадки изменяется только через BookingService.
type VenueService interface {
	AddVenues(ctx context.Context, inputs []VenueInput) (*VenueIngestResult, error)
	ListVenues(ctx context.Context) ([]models.Venue, error)
	GetVenueByID(ctx context.Context, id int) (*models.Venue, error)
}

type venueService struct {
	tx       repositories.TxRunner
	venues   repositories.VenueRepository
	resolver ProfileURLResolver
}

func NewVenueService(tx repositories.TxRunner, venues repositories.VenueRepository, resolver ProfileURLResolver) VenueService {
	return &venueService{tx: tx, venues: venues, resolver: resolver}
}

// AddVenues сохраняет площадки пакета, пропуская уже существующие по имени.
func (s *venueService) AddVenues(ctx context.Context, inputs []VenueInput) (*VenueIngestResult, error) {
	result := &VenueIngestResult{Saved: []string{}, Skipped: []string{}}

	for _, input := range inputs {
		if input.Name == "" {
			return nil, fmt.Errorf("%w: venue name is required", ErrValidationFailed)
		}

		exists, err := s.venues.ExistsByName(ctx, input.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check venue %q: %w", input.Name, err)
		}
		if exists {
			result.Skipped = append(result.Skipped, input.Name)
			continue
		}

		venue := &models.Venue{
			Name:    input.Name,
			Address: input.Address,
			Rating:  input.Rating,
		}
		for _, sport := range input.SportsAvailable {
			vs := models.VenueSport{Name: sport.Name, PricePerSlot: sport.PricePerSlot}
			for _, court := range sport.Courts {
				vs.Courts = append(vs.Courts, models.Court{Number: court.Number, Name: court.Name})
			}
			venue.SportsAvailable = append(venue.SportsAvailable, vs)
		}

		// Площадка с видами спорта и кортами сохраняется одной транзакцией.
		err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
			return s.venues.Create(ctx, exec, venue)
		})
		if err != nil {
			// Гонка двух загрузок одного имени: проигравший пропускает.
			if errors.Is(err, repositories.ErrVenueNameConflict) {
				result.Skipped = append(result.Skipped, input.Name)
				continue
			}
			return nil, fmt.Errorf("failed to save venue %q: %w", input.Name, err)
		}
		result.Saved = append(result.Saved, input.Name)
	}

	return result, nil
}

func (s *venueService) ListVenues(ctx context.Context) ([]models.Venue, error) {
	venues, err := s.venues.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range venues {
		s.decorateVenue(&venues[i])
	}
	return venues, nil
}

func (s *venueService) GetVenueByID(ctx context.Context, id int) (*models.Venue, error) {
	venue, err := s.venues.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapVenueError(err)
	}
	s.decorateVenue(venue)
	return venue, nil
}

func (s *venueService) decorateVenue(v *models.Venue) {
	if v.ImageKey != nil && s.resolver != nil {
		url := s.resolver.GetPublicURL(*v.ImageKey)
		v.ImageURL = &url
	}
}

func (s *venueService) mapVenueError(err error) error {
	if errors.Is(err, repositories.ErrVenueNotFound) {
		return ErrVenueNotFound
	}
	return err
}
