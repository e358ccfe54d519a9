package booking

import (
	"errors"

	"bookingdesk/internal/domain"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = domain.ErrNotFound
	ErrForbidden         = errors.New("forbidden")
	ErrAlreadyCancelled  = errors.New("already_cancelled")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrConflict          = domain.ErrConflict
)
