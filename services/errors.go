package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed    = errors.New("validation failed") // Общая ошибка валидации
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrCommentRequired     = errors.New("join request comment is required")
	ErrQueryTextRequired   = errors.New("query text is required")
	ErrGameInvalidCapacity = errors.New("game total players must be positive")
	ErrGameFieldsRequired  = errors.New("sport, area, date and time are required")
	ErrGameInvalidAccess   = errors.New("invalid activity access value")
	ErrGameAlreadyPlayed   = errors.New("game time window has already ended")
	ErrSlotInPast          = errors.New("requested slot is in the past")
	ErrInvalidSlotDuration = errors.New("slot duration must be a positive multiple of 30 minutes")

	// Ошибки конфликтов
	ErrUserEmailConflict = errors.New("email address is already in use")
	ErrAlreadyMember     = errors.New("user is already in the game")
	ErrDuplicateRequest  = errors.New("join request already sent")
	ErrGameClosed        = errors.New("game is closed for new join requests")
	ErrGameFull          = errors.New("game roster is already full")
	ErrAlreadyBooked     = errors.New("game slot already booked")
	ErrSlotConflict      = errors.New("slot already booked for this sport and court")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed") // Общая ошибка аутентификации
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
	ErrAdminActionForbidden = errors.New("only the game admin can perform this action")

	// Ошибки, специфичные для сущностей (могут дублировать ErrNotFound, но дают больше контекста)
	ErrUserNotFound        = errors.New("user not found")
	ErrGameNotFound        = errors.New("game not found")
	ErrVenueNotFound       = errors.New("venue not found")
	ErrCourtNotFound       = errors.New("court not found for the selected sport")
	ErrJoinRequestNotFound = errors.New("no join request found for this user")
)
