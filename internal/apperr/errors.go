package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrIndeterminate marks a write whose outcome is unknown (e.g. a
	// timeout after the request was sent). Callers must verify the store
	// state before resubmitting instead of retrying blindly.
	ErrIndeterminate = errors.New("write outcome unknown")
)
