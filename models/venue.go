package models

import "time"

// Venue представляет площадку с набором видов спорта и кортов.
type Venue struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	ImageKey  *string   `json:"-" db:"image_key"`
	ImageURL  *string   `json:"image_url,omitempty" db:"-"`
	Rating    float64   `json:"rating" db:"rating"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	SportsAvailable []VenueSport `json:"sports_available,omitempty" db:"-"`
	Bookings        []Booking    `json:"bookings,omitempty" db:"-"`
}

// VenueSport — вид спорта на площадке с ценой за слот и списком кортов.
type VenueSport struct {
	ID           int     `json:"id" db:"id"`
	VenueID      int     `json:"venue_id" db:"venue_id"`
	Name         string  `json:"name" db:"name"`
	PricePerSlot float64 `json:"price_per_slot" db:"price_per_slot"`

	Courts []Court `json:"courts,omitempty" db:"-"`
}

// Court — конкретный бронируемый корт внутри вида спорта площадки.
type Court struct {
	ID           int    `json:"id" db:"id"`
	VenueSportID int    `json:"venue_sport_id" db:"venue_sport_id"`
	Number       int    `json:"number" db:"number"`
	Name         string `json:"name" db:"name"`
}

// Booking создаётся только коммитом бронирования и никогда не изменяется.
// Инвариант: для фиксированных (venue, court, sport, date) окна броней
// не пересекаются (полуоткрытые интервалы).
type Booking struct {
	ID          int       `json:"id" db:"id"`
	VenueID     int       `json:"venue_id" db:"venue_id"`
	CourtNumber int       `json:"court_number" db:"court_number"`
	Sport       string    `json:"sport" db:"sport"`
	StartTime   time.Time `json:"start_time" db:"start_time"`
	EndTime     time.Time `json:"end_time" db:"end_time"`
	UserID      int       `json:"user_id" db:"user_id"`
	GameID      int       `json:"game_id" db:"game_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
