package filter

// Plugin supplies the lifecycle hooks of a filter-set.
//
// Load is called once, during Finalize, in load order. It is the only place
// where the filter-set may create filters and catchers. A Load error aborts
// Finalize.
type Plugin interface {
	Load(set *FilterSet) error
}

// Unloader is implemented by plugins that release resources at Shutdown.
// Unload is only called if Load succeeded.
type Unloader interface {
	Unload(set *FilterSet)
}

// Activator is implemented by plugins that react to activation.
// It runs with the dispatch lock held; use FilterSet.ActivateDeferred and
// FilterSet.DeactivateDeferred to request further transitions.
type Activator interface {
	Activate(set *FilterSet)
}

// Deactivator is implemented by plugins that react to deactivation.
// The same locking rules as Activator apply.
type Deactivator interface {
	Deactivate(set *FilterSet)
}

// Funcs adapts plain functions to Plugin, Unloader, Activator and
// Deactivator. Nil functions are no-ops.
type Funcs struct {
	LoadFunc       func(set *FilterSet) error
	UnloadFunc     func(set *FilterSet)
	ActivateFunc   func(set *FilterSet)
	DeactivateFunc func(set *FilterSet)
}

// Load calls LoadFunc.
func (f Funcs) Load(set *FilterSet) error {
	if f.LoadFunc == nil {
		return nil
	}
	return f.LoadFunc(set)
}

// Unload calls UnloadFunc.
func (f Funcs) Unload(set *FilterSet) {
	if f.UnloadFunc != nil {
		f.UnloadFunc(set)
	}
}

// Activate calls ActivateFunc.
func (f Funcs) Activate(set *FilterSet) {
	if f.ActivateFunc != nil {
		f.ActivateFunc(set)
	}
}

// Deactivate calls DeactivateFunc.
func (f Funcs) Deactivate(set *FilterSet) {
	if f.DeactivateFunc != nil {
		f.DeactivateFunc(set)
	}
}

// Module is the loadable unit a filter-set was registered from, such as a
// shared object or a script.
//
// Modules that also implement io.Closer are closed at Shutdown, after every
// filter-set has been unloaded.
type Module interface {
	// Path identifies the module, usually by file path.
	Path() string
}

// SymbolTable is implemented by modules that export named symbols.
type SymbolTable interface {
	Lookup(symbol string) (any, error)
}
