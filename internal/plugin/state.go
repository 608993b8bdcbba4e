package plugin

// State represents the lifecycle state of a plugin.
type State int

// Plugin states.
const (
	// StateDiscovered - Plugin was found but its entry point has not run.
	StateDiscovered State = iota

	// StateLoaded - The entry point ran and registered its filter-sets.
	StateLoaded

	// StateError - Discovery or the entry point failed.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Kind identifies how a plugin is loaded.
type Kind int

// Plugin kinds.
const (
	KindLua Kind = iota
	KindGo
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindLua:
		return "lua"
	case KindGo:
		return "go"
	default:
		return "unknown"
	}
}
