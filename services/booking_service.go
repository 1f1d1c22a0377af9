package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/game-booking-system/live"
	"github.com/Dosada05/game-booking-system/models"
	"github.com/Dosada05/game-booking-system/repositories"
	"github.com/Dosada05/game-booking-system/slots"
)

// BookInput — запрос на бронирование корта для игры.
type BookInput struct {
	GameID      int    `json:"-"`
	VenueName   string `json:"venue_name"`
	CourtNumber int    `json:"court_number"`
	Sport       string `json:"sport"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// BookingResult — результат успешного бронирования: корт и цена за слот
// (цена информационная, расчётов система не ведёт).
type BookingResult struct {
	CourtNumber int            `json:"court_number"`
	Price       float64        `json:"price"`
	Booking     models.Booking `json:"booking"`
}

// CourtGrid — дневная сетка доступности одного корта.
type CourtGrid struct {
	CourtNumber int          `json:"court_number"`
	CourtName   string       `json:"court_name"`
	Slots       []slots.Slot `json:"slots"`
}

// SlotGridView — сетки всех кортов площадки для вида спорта и дня.
type SlotGridView struct {
	VenueID   int         `json:"venue_id"`
	Sport     string      `json:"sport"`
	DateLabel string      `json:"date"`
	Price     float64     `json:"price_per_slot"`
	Courts    []CourtGrid `json:"courts"`
}

// BookingService связывает игру с кортом площадки: проверяет доступность
// окна и атомарно фиксирует бронь вместе с флагами игры.
type BookingService interface {
	Book(ctx context.Context, actingUserID int, input BookInput) (*BookingResult, error)
	SlotGrid(ctx context.Context, venueID int, sport, dateLabel string, duration time.Duration) (*SlotGridView, error)
}

type bookingService struct {
	tx     repositories.TxRunner
	games  repositories.GameRepository
	venues repositories.VenueRepository
	users  repositories.UserRepository
	hub    *live.Hub
	now    func() time.Time
}

func NewBookingService(
	tx repositories.TxRunner,
	games repositories.GameRepository,
	venues repositories.VenueRepository,
	users repositories.UserRepository,
	hub *live.Hub,
) BookingService {
	return &bookingService{
		tx:     tx,
		games:  games,
		venues: venues,
		users:  users,
		hub:    hub,
		now:    time.Now,
	}
}

// Book выполняет цепочку предусловий в фиксированном порядке, каждое со своим
// типом отказа, и коммитит бронь одной транзакцией. Строка корта блокируется,
// поэтому два пересекающихся бронирования одного корта не могут пройти оба.
func (s *bookingService) Book(ctx context.Context, actingUserID int, input BookInput) (*BookingResult, error) {
	if input.VenueName == "" || input.Sport == "" || input.Date == "" || input.Time == "" || input.CourtNumber == 0 {
		return nil, ErrValidationFailed
	}

	window, err := slots.ParseWindow(input.Date, input.Time, s.now())
	if err != nil {
		return nil, err
	}

	// Все внешние чтения — до входа в критическую секцию.
	if _, err := s.users.GetByID(ctx, actingUserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// Предусловия игры проверяются раньше площадки, каждое — свой отказ.
	// Без блокировки: внутри транзакции они перечитываются под FOR UPDATE.
	precheck, err := s.games.GetByID(ctx, nil, input.GameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	if precheck.AdminID != actingUserID {
		return nil, ErrAdminActionForbidden
	}
	if precheck.IsBooked {
		return nil, ErrAlreadyBooked
	}

	venue, err := s.venues.GetByName(ctx, input.VenueName)
	if err != nil {
		if errors.Is(err, repositories.ErrVenueNotFound) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	price, ok := findCourtPrice(venue, input.Sport, input.CourtNumber)
	if !ok {
		return nil, ErrCourtNotFound
	}

	booking := &models.Booking{
		VenueID:     venue.ID,
		CourtNumber: input.CourtNumber,
		Sport:       input.Sport,
		StartTime:   window.Start,
		EndTime:     window.End,
		UserID:      actingUserID,
		GameID:      input.GameID,
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		game, err := s.games.GetByIDForUpdate(ctx, exec, input.GameID)
		if err != nil {
			if errors.Is(err, repositories.ErrGameNotFound) {
				return ErrGameNotFound
			}
			return err
		}
		if game.AdminID != actingUserID {
			return ErrAdminActionForbidden
		}
		if game.IsBooked {
			return ErrAlreadyBooked
		}

		if _, err := s.venues.LockCourt(ctx, exec, venue.ID, input.Sport, input.CourtNumber); err != nil {
			if errors.Is(err, repositories.ErrCourtNotFound) {
				return ErrCourtNotFound
			}
			return err
		}

		bookings, err := s.venues.ListBookingsForDay(ctx, exec, venue.ID, input.Sport, window.Start)
		if err != nil {
			return err
		}

		// Тот же предикат, что и в сетке доступности: расхождение семантики
		// здесь означало бы "свободный" слот, отклонённый при коммите.
		switch slots.Evaluate(bookings, input.CourtNumber, input.Sport, window.Start, window.End.Sub(window.Start), s.now()) {
		case slots.StatusPast:
			return ErrSlotInPast
		case slots.StatusBooked:
			return ErrSlotConflict
		}

		if err := s.venues.CreateBooking(ctx, exec, booking); err != nil {
			return err
		}
		return s.games.SetBooked(ctx, exec, input.GameID, input.CourtNumber)
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(live.GameRoom(input.GameID), live.Message{
			Type:    live.EventGameBooked,
			Payload: map[string]interface{}{"court_number": input.CourtNumber, "date": window.DateLabel(), "time": window.TimeLabel()},
		})
	}

	return &BookingResult{CourtNumber: input.CourtNumber, Price: price, Booking: *booking}, nil
}

// SlotGrid строит дневную сетку доступности всех кортов площадки для вида
// спорта. Статусы вычисляются тем же предикатом, что и коммит брони.
func (s *bookingService) SlotGrid(ctx context.Context, venueID int, sport, dateLabel string, duration time.Duration) (*SlotGridView, error) {
	if duration <= 0 || duration%slots.SlotStep != 0 {
		return nil, ErrInvalidSlotDuration
	}

	day, err := slots.ParseDate(dateLabel, s.now())
	if err != nil {
		return nil, err
	}

	venue, err := s.venues.GetByID(ctx, venueID)
	if err != nil {
		if errors.Is(err, repositories.ErrVenueNotFound) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}

	var venueSport *models.VenueSport
	for i := range venue.SportsAvailable {
		if venue.SportsAvailable[i].Name == sport {
			venueSport = &venue.SportsAvailable[i]
			break
		}
	}
	if venueSport == nil {
		return nil, ErrCourtNotFound
	}

	bookings, err := s.venues.ListBookingsForDay(ctx, nil, venueID, sport, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for venue %d: %w", venueID, err)
	}

	now := s.now()
	view := &SlotGridView{
		VenueID:   venueID,
		Sport:     sport,
		DateLabel: slots.FormatDate(day),
		Price:     venueSport.PricePerSlot,
		Courts:    make([]CourtGrid, 0, len(venueSport.Courts)),
	}
	for _, court := range venueSport.Courts {
		view.Courts = append(view.Courts, CourtGrid{
			CourtNumber: court.Number,
			CourtName:   court.Name,
			Slots:       slots.Grid(bookings, court.Number, sport, day, duration, now),
		})
	}
	return view, nil
}

func findCourtPrice(venue *models.Venue, sport string, courtNumber int) (float64, bool) {
	for _, s := range venue.SportsAvailable {
		if s.Name != sport {
			continue
		}
		for _, c := range s.Courts {
			if c.Number == courtNumber {
				return s.PricePerSlot, true
			}
		}
	}
	return 0, false
}
