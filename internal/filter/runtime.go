package filter

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/glintercept/internal/api"
	"github.com/dshills/glintercept/internal/order"
)

// Default names of the filter-sets and filters the runtime treats specially.
const (
	// DefaultBootstrap is the filter-set every other filter-set depends on.
	DefaultBootstrap = "log"

	// DefaultPassThrough is the filter that forwards calls to the real
	// implementation. Operations caught by nothing else are bypassed.
	DefaultPassThrough = "invoke"
)

// Names of the constraint tables, as reported in cycle errors.
const (
	tableLoadDeps    = "filter-set dependencies"
	tableLoadOrder   = "filter-set order"
	tableFilterOrder = "filter order"
)

// Runtime owns the filter-set registry, the constraint tables and the
// dispatch state for one instrumented process.
type Runtime struct {
	// mu is the dispatch lock. A whole callback chain runs under it, and so
	// do host activation, configuration and shutdown.
	mu sync.Mutex

	table   *api.Table
	logger  *zap.Logger
	session uuid.UUID

	bootstrap   string
	passThrough string

	// registry, in registration order
	sets   []*FilterSet
	byName map[string]*FilterSet

	loadDeps    *order.Table
	loadOrder   *order.Table
	filterOrder *order.Table

	// added filter-sets in dependency post-order
	requested []*FilterSet

	// finalized state
	loaded      []*FilterSet
	filters     []*Filter
	filterNames map[string]*Filter
	bypass      []bool
	arena       arena
	finalized   bool
	ready       bool

	// module of the plugin entry point currently running
	currentModule Module
	modules       []Module

	// dispatch state, guarded by mu
	cache [][]*Catcher
	dirty bool

	deferred deferredQueue
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithBootstrap sets the filter-set every other filter-set implicitly
// depends on. An empty name disables the implicit dependency.
func WithBootstrap(name string) Option {
	return func(rt *Runtime) {
		rt.bootstrap = name
	}
}

// WithPassThrough sets the name of the filter whose catchers do not
// prevent an operation from being bypassed.
func WithPassThrough(name string) Option {
	return func(rt *Runtime) {
		rt.passThrough = name
	}
}

// New creates a runtime for the operations in table.
func New(table *api.Table, opts ...Option) *Runtime {
	rt := &Runtime{
		table:       table,
		logger:      zap.NewNop(),
		session:     uuid.New(),
		bootstrap:   DefaultBootstrap,
		passThrough: DefaultPassThrough,
		byName:      make(map[string]*FilterSet),
		loadDeps:    order.NewTable(tableLoadDeps),
		loadOrder:   order.NewTable(tableLoadOrder),
		filterOrder: order.NewTable(tableFilterOrder),
		filterNames: make(map[string]*Filter),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.logger = rt.logger.With(zap.String("session", rt.session.String()))
	return rt
}

// Table returns the operation table.
func (rt *Runtime) Table() *api.Table { return rt.table }

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *zap.Logger { return rt.logger }

// Session returns the identifier attached to the runtime's log lines.
func (rt *Runtime) Session() uuid.UUID { return rt.session }

// Bootstrap returns the name of the bootstrap filter-set.
func (rt *Runtime) Bootstrap() string { return rt.bootstrap }

// PassThrough returns the name of the pass-through filter.
func (rt *Runtime) PassThrough() string { return rt.passThrough }

// FilterSet returns the named filter-set.
func (rt *Runtime) FilterSet(name string) (*FilterSet, bool) {
	s, ok := rt.byName[name]
	return s, ok
}

// FilterSets returns every registered filter-set in registration order.
func (rt *Runtime) FilterSets() []*FilterSet {
	out := make([]*FilterSet, len(rt.sets))
	copy(out, rt.sets)
	return out
}

// LoadOrder returns the names of the loaded filter-sets in load order.
func (rt *Runtime) LoadOrder() []string {
	names := make([]string, len(rt.loaded))
	for i, s := range rt.loaded {
		names[i] = s.name
	}
	return names
}

// FilterOrder returns the names of all filters in execution order.
func (rt *Runtime) FilterOrder() []string {
	names := make([]string, len(rt.filters))
	for i, f := range rt.filters {
		names[i] = f.name
	}
	return names
}

// IsLoaded reports whether the named filter-set is loaded.
// Safe to call from callbacks.
func (rt *Runtime) IsLoaded(name string) bool {
	s, ok := rt.byName[name]
	return ok && s.loaded.Load()
}

// IsActive reports whether the named filter-set is active.
// Safe to call from callbacks.
func (rt *Runtime) IsActive(name string) bool {
	s, ok := rt.byName[name]
	return ok && s.active.Load()
}
