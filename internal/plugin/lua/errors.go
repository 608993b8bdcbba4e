package lua

import "errors"

// Errors for Lua scripts.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrBadDescriptor is returned when a filter-set table is malformed.
	ErrBadDescriptor = errors.New("invalid filter-set descriptor")

	// ErrLoadRejected is returned when a script's load hook returns false.
	ErrLoadRejected = errors.New("load hook returned false")
)
