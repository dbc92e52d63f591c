package utils

import "errors"

// Common application errors used across services.
var (
	ErrOrderNotFound        = errors.New("ORDER_NOT_FOUND")
	ErrInvalidCredentials   = errors.New("INVALID_CREDENTIALS")
	ErrInvalidToken         = errors.New("INVALID_TOKEN")
	ErrSessionNotFound      = errors.New("SESSION_NOT_FOUND")
	ErrValidation           = errors.New("VALIDATION_FAILED")
	ErrLastItem             = errors.New("LAST_ITEM")
	ErrItemIndex            = errors.New("INVALID_ITEM_INDEX")
	ErrConfirmationRequired = errors.New("CONFIRMATION_REQUIRED")
	ErrSaveInProgress       = errors.New("SAVE_IN_PROGRESS")
	ErrEditorClosed         = errors.New("EDITOR_CLOSED")
	ErrEditorNotOpen        = errors.New("EDITOR_NOT_OPEN")
)
