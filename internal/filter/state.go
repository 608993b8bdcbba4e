package filter

// State is the lifecycle state of a filter-set.
type State int

// Filter-set states.
const (
	// StateUnloaded - The filter-set is registered but not loaded.
	StateUnloaded State = iota

	// StateLoaded - The filter-set is loaded and its filters exist, but its
	// catchers only run if they are marked inactive-ok.
	StateLoaded

	// StateActive - The filter-set is loaded and all its catchers run.
	StateActive
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// IsLoaded returns true if the filter-set's filters exist.
func (s State) IsLoaded() bool {
	return s == StateLoaded || s == StateActive
}
