package models

import "time"

// UserRole представляет роль пользователя в системе.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "player"
)

type User struct {
	ID           int       `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	AvatarKey    *string   `json:"-" db:"avatar_key"`
	AvatarURL    *string   `json:"avatar_url,omitempty" db:"-"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DisplayName возвращает имя для отображения в списках игроков и заявок.
func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// PlayerProfile — публичное представление игрока для декорирования ответов.
type PlayerProfile struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
