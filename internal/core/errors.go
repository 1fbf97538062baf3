package core

import "errors"

// Anything not wrapping one of these is a storage failure and is returned
// unchanged from the store or file system.
var (
	ErrNotFound           = errors.New("not found")
	ErrUpstreamGeneration = errors.New("upstream generation failed")
	ErrInvalidPayload     = errors.New("invalid payload")
)
