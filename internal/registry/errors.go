package registry

import "errors"

// Sentinel errors for the registry service layer.
var (
	ErrNotFound   = errors.New("organization not found")
	ErrMissingKey = errors.New("organization key is required")
)
