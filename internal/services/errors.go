package services

import (
	"errors"

	"github.com/clinicorp/n0-error-tracker/internal/store"
)

var (
	ErrNotFound          = store.ErrNotFound
	ErrDuplicateKey      = store.ErrDuplicateKey
	ErrAccessDenied      = errors.New("access denied")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusConflict    = errors.New("status changed concurrently")
)
