package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/game-booking-system/models"
	"github.com/lib/pq"
)

var (
	ErrVenueNotFound     = errors.New("venue not found")
	ErrVenueNameConflict = errors.New("venue name is already in use")
	ErrCourtNotFound     = errors.New("court not found for the selected sport")
	ErrBookingInvalidRef = errors.New("booking references a missing venue, user or game")
)

type VenueRepository interface {
	Create(ctx context.Context, exec SQLExecutor, venue *models.Venue) error
	GetByID(ctx context.Context, id int) (*models.Venue, error)
	GetByName(ctx context.Context, name string) (*models.Venue, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]models.Venue, error)

	// LockCourt блокирует строку корта до конца транзакции. Все коммиты
	// бронирований одного корта сериализуются на этой блокировке, поэтому
	// check-then-append безопасен.
	LockCourt(ctx context.Context, exec SQLExecutor, venueID int, sport string, courtNumber int) (*models.Court, error)
	ListBookingsForDay(ctx context.Context, exec SQLExecutor, venueID int, sport string, day time.Time) ([]models.Booking, error)
	CreateBooking(ctx context.Context, exec SQLExecutor, booking *models.Booking) error
}

type postgresVenueRepository struct {
	db *sql.DB
}

func NewPostgresVenueRepository(db *sql.DB) VenueRepository {
	return &postgresVenueRepository{db: db}
}

func (r *postgresVenueRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresVenueRepository) Create(ctx context.Context, exec SQLExecutor, v *models.Venue) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO venues (name, address, rating, image_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, v.Name, v.Address, v.Rating, v.ImageKey).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return r.handleVenueError(err)
	}

	for i := range v.SportsAvailable {
		sport := &v.SportsAvailable[i]
		sport.VenueID = v.ID
		sportQuery := `
			INSERT INTO venue_sports (venue_id, name, price_per_slot)
			VALUES ($1, $2, $3)
			RETURNING id`
		if err := executor.QueryRowContext(ctx, sportQuery, sport.VenueID, sport.Name, sport.PricePerSlot).Scan(&sport.ID); err != nil {
			return r.handleVenueError(err)
		}
		for j := range sport.Courts {
			court := &sport.Courts[j]
			court.VenueSportID = sport.ID
			courtQuery := `
				INSERT INTO venue_courts (venue_sport_id, number, name)
				VALUES ($1, $2, $3)
				RETURNING id`
			if err := executor.QueryRowContext(ctx, courtQuery, court.VenueSportID, court.Number, court.Name).Scan(&court.ID); err != nil {
				return r.handleVenueError(err)
			}
		}
	}
	return nil
}

func (r *postgresVenueRepository) GetByID(ctx context.Context, id int) (*models.Venue, error) {
	return r.getVenue(ctx, `WHERE id = $1`, id)
}

func (r *postgresVenueRepository) GetByName(ctx context.Context, name string) (*models.Venue, error) {
	return r.getVenue(ctx, `WHERE name = $1`, name)
}

func (r *postgresVenueRepository) getVenue(ctx context.Context, where string, arg interface{}) (*models.Venue, error) {
	query := `SELECT id, name, address, rating, image_key, created_at FROM venues ` + where

	v := &models.Venue{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&v.ID, &v.Name, &v.Address, &v.Rating, &v.ImageKey, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}

	if err := r.loadSports(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *postgresVenueRepository) loadSports(ctx context.Context, v *models.Venue) error {
	query := `
		SELECT s.id, s.venue_id, s.name, s.price_per_slot, c.id, c.venue_sport_id, c.number, c.name
		FROM venue_sports s
		LEFT JOIN venue_courts c ON c.venue_sport_id = s.id
		WHERE s.venue_id = $1
		ORDER BY s.id, c.number`

	rows, err := r.db.QueryContext(ctx, query, v.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	sportIndex := map[int]int{}
	v.SportsAvailable = make([]models.VenueSport, 0)
	for rows.Next() {
		var s models.VenueSport
		var courtID, courtSportID, courtNumber sql.NullInt64
		var courtName sql.NullString
		if scanErr := rows.Scan(&s.ID, &s.VenueID, &s.Name, &s.PricePerSlot, &courtID, &courtSportID, &courtNumber, &courtName); scanErr != nil {
			return scanErr
		}
		idx, ok := sportIndex[s.ID]
		if !ok {
			s.Courts = make([]models.Court, 0, 4)
			v.SportsAvailable = append(v.SportsAvailable, s)
			idx = len(v.SportsAvailable) - 1
			sportIndex[s.ID] = idx
		}
		if courtID.Valid {
			v.SportsAvailable[idx].Courts = append(v.SportsAvailable[idx].Courts, models.Court{
				ID:           int(courtID.Int64),
				VenueSportID: int(courtSportID.Int64),
				Number:       int(courtNumber.Int64),
				Name:         courtName.String,
			})
		}
	}
	return rows.Err()
}

func (r *postgresVenueRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM venues WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

func (r *postgresVenueRepository) List(ctx context.Context) ([]models.Venue, error) {
	query := `SELECT id, name, address, rating, image_key, created_at FROM venues ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	venues := make([]models.Venue, 0)
	for rows.Next() {
		var v models.Venue
		if scanErr := rows.Scan(&v.ID, &v.Name, &v.Address, &v.Rating, &v.ImageKey, &v.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		venues = append(venues, v)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range venues {
		if err := r.loadSports(ctx, &venues[i]); err != nil {
			return nil, err
		}
	}
	return venues, nil
}

func (r *postgresVenueRepository) LockCourt(ctx context.Context, exec SQLExecutor, venueID int, sport string, courtNumber int) (*models.Court, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT c.id, c.venue_sport_id, c.number, c.name
		FROM venue_courts c
		JOIN venue_sports s ON s.id = c.venue_sport_id
		WHERE s.venue_id = $1 AND s.name = $2 AND c.number = $3
		FOR UPDATE OF c`

	court := &models.Court{}
	err := executor.QueryRowContext(ctx, query, venueID, sport, courtNumber).Scan(
		&court.ID, &court.VenueSportID, &court.Number, &court.Name,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourtNotFound
		}
		return nil, err
	}
	return court, nil
}

func (r *postgresVenueRepository) ListBookingsForDay(ctx context.Context, exec SQLExecutor, venueID int, sport string, day time.Time) ([]models.Booking, error) {
	executor := r.getExecutor(exec)
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT id, venue_id, court_number, sport, start_time, end_time, user_id, game_id, created_at
		FROM bookings
		WHERE venue_id = $1 AND sport = $2 AND start_time >= $3 AND start_time < $4
		ORDER BY start_time, id`

	rows, err := executor.QueryContext(ctx, query, venueID, sport, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		var b models.Booking
		if scanErr := rows.Scan(&b.ID, &b.VenueID, &b.CourtNumber, &b.Sport, &b.StartTime, &b.EndTime, &b.UserID, &b.GameID, &b.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *postgresVenueRepository) CreateBooking(ctx context.Context, exec SQLExecutor, b *models.Booking) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO bookings (venue_id, court_number, sport, start_time, end_time, user_id, game_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		b.VenueID, b.CourtNumber, b.Sport, b.StartTime, b.EndTime, b.UserID, b.GameID,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", r.handleVenueError(err))
	}
	return nil
}

func (r *postgresVenueRepository) handleVenueError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "venues_name_key" {
				return ErrVenueNameConflict
			}
		case "23503":
			return ErrBookingInvalidRef
		}
	}
	return err
}
