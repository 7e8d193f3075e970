package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed   = errors.New("validation failed")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters long")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidRole        = errors.New("role must be one of: player, organizer, fan")
	ErrTeamNameRequired   = errors.New("team name is required")
	ErrTeamFull           = errors.New("team roster is full")
	ErrUserAlreadyInTeam  = errors.New("player is already in the team")
	ErrCannotRemoveSelf   = errors.New("captain cannot remove themselves from the team")
	ErrRatingOutOfRange   = errors.New("rating must be an integer between 1 and 5")

	// Ошибки конфликтов
	ErrUserCredentialsConflict = errors.New("username or email is already in use")
	ErrTeamNameConflict        = errors.New("team with this name already exists")
	ErrRegistrationConflict    = errors.New("team is already registered for this tournament")
	ErrInviteAlreadyPending    = errors.New("player already has a pending invitation to this team")

	// Ошибки аутентификации и авторизации
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden = errors.New("only the team captain can perform this action")
	ErrOrganizerOnly          = errors.New("only the tournament organizer can perform this action")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound         = errors.New("user not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrReviewNotFound       = errors.New("review not found")
	ErrAnnouncementNotFound = errors.New("announcement not found")
)
