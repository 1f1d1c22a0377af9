package models

import "time"

// GameStatus представляет статусы игры, соответствующие ENUM в БД.
type GameStatus string

const (
	GameStatusScheduled GameStatus = "scheduled"
	GameStatusCompleted GameStatus = "completed"
)

// ActivityAccess определяет, кто может подавать заявки на участие.
type ActivityAccess string

const (
	AccessPublic     ActivityAccess = "public"
	AccessInviteOnly ActivityAccess = "invite_only"
)

// Game представляет игровую сессию: состав, заявки и бронь корта.
// Временное окно хранится структурно (start/end), строки вида
// "5:00 AM - 6:00 AM" существуют только как отображение.
type Game struct {
	ID             int            `json:"id" db:"id"`
	Sport          string         `json:"sport" db:"sport"`
	Area           string         `json:"area" db:"area"`
	StartTime      time.Time      `json:"start_time" db:"start_time"`
	EndTime        time.Time      `json:"end_time" db:"end_time"`
	AdminID        int            `json:"admin_id" db:"admin_id"`
	TotalPlayers   int            `json:"total_players" db:"total_players"`
	ActivityAccess ActivityAccess `json:"activity_access" db:"activity_access"`
	MatchFull      bool           `json:"match_full" db:"match_full"`
	IsBooked       bool           `json:"is_booked" db:"is_booked"`
	CourtNumber    *int           `json:"court_number,omitempty" db:"court_number"`
	Status         GameStatus     `json:"status" db:"status"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`

	// Связанные сущности (не мапятся напрямую)
	PlayerIDs []int           `json:"player_ids,omitempty" db:"-"`
	Players   []PlayerProfile `json:"players,omitempty" db:"-"`
	Requests  []JoinRequest   `json:"requests,omitempty" db:"-"`
	Queries   []GameQuery     `json:"queries,omitempty" db:"-"`
}

// JoinRequest — ожидающая заявка на вступление в игру.
// Принятие удаляет запись, а не переводит статус.
type JoinRequest struct {
	ID        int       `json:"id" db:"id"`
	GameID    int       `json:"game_id" db:"game_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Comment   string    `json:"comment" db:"comment"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Requester *PlayerProfile `json:"requester,omitempty" db:"-"`
}

// JoinRequestStatusPending — единственный статус, в котором заявка существует.
const JoinRequestStatusPending = "pending"

// GameQuery — вопрос потенциального участника организатору. Только append.
type GameQuery struct {
	ID        int       `json:"id" db:"id"`
	GameID    int       `json:"game_id" db:"game_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
