package filter

import (
	"errors"
	"fmt"
)

// Runtime errors.
var (
	// ErrFinalized is returned by registration calls made after Finalize.
	ErrFinalized = errors.New("runtime is finalized")

	// ErrFilterSetNotFound is returned when a filter-set name is unknown.
	ErrFilterSetNotFound = errors.New("filter-set not found")

	// ErrDuplicateFilterSet is returned when a filter-set name is registered twice.
	ErrDuplicateFilterSet = errors.New("duplicate filter-set")

	// ErrInvalidFilterSet is returned when a filter-set descriptor is malformed.
	ErrInvalidFilterSet = errors.New("invalid filter-set")

	// ErrDuplicateFilter is returned when a filter name is already taken.
	ErrDuplicateFilter = errors.New("duplicate filter")

	// ErrNotLoading is returned when filters or catchers are created outside
	// the owning filter-set's Load.
	ErrNotLoading = errors.New("filter-set is not loading")

	// ErrLoadFailed is returned by Finalize when a filter-set fails to load.
	ErrLoadFailed = errors.New("filter-set failed to load")

	// ErrNotLoaded is returned when activating a filter-set that is not loaded.
	ErrNotLoaded = errors.New("filter-set is not loaded")

	// ErrUnknownOperation is returned when a catcher names an operation or
	// group that is not in the operation table.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrUnknownVariable is returned when configuring a variable that the
	// filter-set does not declare.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrInvalidValue is returned when a variable value cannot be parsed or
	// is rejected by the filter-set.
	ErrInvalidValue = errors.New("invalid variable value")

	// ErrInvalidVariable is returned when a variable descriptor is malformed.
	ErrInvalidVariable = errors.New("invalid variable descriptor")

	// ErrNoSymbol is returned by FilterSet.Lookup when the module cannot
	// resolve symbols.
	ErrNoSymbol = errors.New("symbol not found")
)

// VariableError describes a failed Configure call.
type VariableError struct {
	FilterSet string
	Variable  string
	Value     string
	Err       error
}

func (e *VariableError) Error() string {
	return fmt.Sprintf("filter-set %s: variable %s = %q: %v", e.FilterSet, e.Variable, e.Value, e.Err)
}

func (e *VariableError) Unwrap() error {
	return e.Err
}
