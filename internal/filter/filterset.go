package filter

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/glintercept/internal/api"
)

// FilterSetInfo describes a filter-set at registration.
type FilterSetInfo struct {
	// Name must be unique within the runtime.
	Name string

	// Help is a one-line description shown by Runtime.Help.
	Help string

	// Plugin supplies the lifecycle hooks. Nil means no hooks.
	Plugin Plugin

	// Variables are the settings Runtime.Configure may change.
	Variables []Variable

	// CallStateSpace is the number of scratch bytes the filter-set needs
	// for each call.
	CallStateSpace int
}

// FilterSet is a registered instrumentation plugin: the unit of
// dependency, loading and activation.
type FilterSet struct {
	rt     *Runtime
	index  int
	name   string
	help   string
	plugin Plugin
	module Module

	variables []Variable
	varIndex  map[string]int

	// scratch range, valid once the arena is sealed
	offset  int
	size    int
	scratch []byte

	filters []*Filter

	// registration phase
	added    bool
	activate bool
	loading  bool

	loaded atomic.Bool
	active atomic.Bool
}

// Name returns the filter-set name.
func (s *FilterSet) Name() string { return s.name }

// Help returns the one-line description.
func (s *FilterSet) Help() string { return s.help }

// Module returns the module the filter-set was registered from, or nil for
// filter-sets registered directly by the host.
func (s *FilterSet) Module() Module { return s.module }

// Runtime returns the runtime the filter-set belongs to.
func (s *FilterSet) Runtime() *Runtime { return s.rt }

// Logger returns the runtime logger tagged with the filter-set name.
func (s *FilterSet) Logger() *zap.Logger {
	return s.rt.logger.With(zap.String("filterset", s.name))
}

// IsLoaded reports whether Load has succeeded. Safe from callbacks.
func (s *FilterSet) IsLoaded() bool { return s.loaded.Load() }

// IsActive reports whether the filter-set is active. Safe from callbacks.
func (s *FilterSet) IsActive() bool { return s.active.Load() }

// State returns the lifecycle state.
func (s *FilterSet) State() State {
	switch {
	case s.active.Load():
		return StateActive
	case s.loaded.Load():
		return StateLoaded
	default:
		return StateUnloaded
	}
}

// Filters returns the filters the filter-set created, in creation order.
func (s *FilterSet) Filters() []*Filter {
	out := make([]*Filter, len(s.filters))
	copy(out, s.filters)
	return out
}

// CallStateSpace returns the number of scratch bytes reserved per call.
func (s *FilterSet) CallStateSpace() int { return s.size }

// Scratch returns the filter-set's range of the call arena. It is the same
// slice callbacks receive in CallbackData.
func (s *FilterSet) Scratch() []byte { return s.scratch }

// NewFilter creates a filter owned by s. It is only valid inside Load.
func (s *FilterSet) NewFilter(name string) (*Filter, error) {
	return s.rt.NewFilter(s, name)
}

// ActivateDeferred requests activation once the current dispatch chain has
// finished. It never blocks on the dispatch lock.
func (s *FilterSet) ActivateDeferred() {
	s.rt.deferred.push(s, true)
}

// DeactivateDeferred requests deactivation once the current dispatch chain
// has finished. It never blocks on the dispatch lock.
func (s *FilterSet) DeactivateDeferred() {
	s.rt.deferred.push(s, false)
}

// Lookup resolves a symbol exported by the filter-set's module.
func (s *FilterSet) Lookup(symbol string) (any, error) {
	st, ok := s.module.(SymbolTable)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", s.name, ErrNoSymbol, symbol)
	}
	return st.Lookup(symbol)
}

// Callback is invoked for each intercepted call a catcher matches.
// Returning false suppresses the rest of the chain, including the real call.
type Callback func(call *api.Call, data CallbackData) bool

// CallbackData is passed to every callback.
type CallbackData struct {
	// Scratch is the owning filter-set's range of the call arena, or nil if
	// it reserved none.
	Scratch []byte

	// FilterSet is the filter-set that owns the catcher.
	FilterSet *FilterSet
}

// Filter is a named, ordered group of catchers owned by one filter-set.
type Filter struct {
	name     string
	set      *FilterSet
	catchers []*Catcher
}

// Name returns the filter name.
func (f *Filter) Name() string { return f.name }

// FilterSet returns the owning filter-set.
func (f *Filter) FilterSet() *FilterSet { return f.set }

// Catchers returns the filter's catchers in registration order.
func (f *Filter) Catchers() []*Catcher {
	out := make([]*Catcher, len(f.catchers))
	copy(out, f.catchers)
	return out
}

// CatchesID binds cb to one operation.
// If inactiveOK is set the callback runs even while the filter-set is
// inactive.
func (f *Filter) CatchesID(op api.OperationID, inactiveOK bool, cb Callback) error {
	if err := f.checkCatch(cb); err != nil {
		return err
	}
	if !f.set.rt.table.Valid(op) {
		return fmt.Errorf("filter %s: %w: id %d", f.name, ErrUnknownOperation, op)
	}
	f.catchers = append(f.catchers, &Catcher{op: op, inactiveOK: inactiveOK, callback: cb, filter: f})
	return nil
}

// CatchesFunction binds cb to the named operation only.
func (f *Filter) CatchesFunction(name string, inactiveOK bool, cb Callback) error {
	op, ok := f.set.rt.table.Lookup(name)
	if !ok {
		return fmt.Errorf("filter %s: %w: %s", f.name, ErrUnknownOperation, name)
	}
	return f.CatchesID(op, inactiveOK, cb)
}

// Catches binds cb to every operation in the named group.
func (f *Filter) Catches(group string, inactiveOK bool, cb Callback) error {
	ops := f.set.rt.table.Group(group)
	if len(ops) == 0 {
		return fmt.Errorf("filter %s: %w: group %s", f.name, ErrUnknownOperation, group)
	}
	for _, op := range ops {
		if err := f.CatchesID(op, inactiveOK, cb); err != nil {
			return err
		}
	}
	return nil
}

// CatchesAll binds cb to every operation in the table.
func (f *Filter) CatchesAll(inactiveOK bool, cb Callback) error {
	for op, n := 0, f.set.rt.table.Len(); op < n; op++ {
		if err := f.CatchesID(api.OperationID(op), inactiveOK, cb); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filter) checkCatch(cb Callback) error {
	if !f.set.loading {
		return fmt.Errorf("filter %s: %w", f.name, ErrNotLoading)
	}
	if cb == nil {
		return fmt.Errorf("filter %s: nil callback", f.name)
	}
	return nil
}

// Catcher binds one callback to one operation. Catchers are immutable.
type Catcher struct {
	op         api.OperationID
	inactiveOK bool
	callback   Callback
	filter     *Filter
}

// Op returns the caught operation.
func (c *Catcher) Op() api.OperationID { return c.op }

// InactiveOK reports whether the catcher runs while its filter-set is inactive.
func (c *Catcher) InactiveOK() bool { return c.inactiveOK }

// Filter returns the owning filter.
func (c *Catcher) Filter() *Filter { return c.filter }
