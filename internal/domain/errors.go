package domain

import "errors"

// Storage-level sentinels shared by every persistence gateway.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
)
