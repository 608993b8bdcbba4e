package filter

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/glintercept/internal/api"
	"github.com/dshills/glintercept/internal/order"
)

// Finalize ends registration. It sorts the added filter-sets by the
// load-order constraints, loads them in that order, sorts the resulting
// filters by the filter-order constraints, computes the bypass table and
// seals the scratch arena.
//
// Constraints that name unregistered filter-sets or filters are logged and
// dropped. A cycle in either order, or a failing Load, is returned as an
// error; the runtime must then be shut down.
func (rt *Runtime) Finalize() error {
	if rt.finalized {
		return ErrFinalized
	}
	rt.finalized = true
	rt.arena.seal()
	for _, s := range rt.sets {
		s.scratch = rt.arena.slice(s.offset, s.size)
	}

	rt.prune(rt.loadDeps, func(name string) bool { return rt.byName[name] != nil })
	rt.prune(rt.loadOrder, func(name string) bool { return rt.byName[name] != nil })

	sets, err := order.Sort(rt.requested, rt.loadOrder, (*FilterSet).Name)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	var collected []*Filter
	for _, s := range sets {
		if err := rt.load(s); err != nil {
			return err
		}
		collected = append(collected, s.filters...)
		if s.activate {
			if err := rt.activate(s); err != nil {
				return err
			}
		}
	}

	rt.prune(rt.filterOrder, func(name string) bool { return rt.filterNames[name] != nil })
	filters, err := order.Sort(collected, rt.filterOrder, (*Filter).Name)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	rt.filters = filters

	rt.computeBypass()
	rt.drain()
	rt.dirty = true
	rt.ready = true

	rt.logger.Info("filter-sets loaded",
		zap.Strings("load_order", rt.LoadOrder()),
		zap.Int("filters", len(rt.filters)))
	return nil
}

// prune drops constraints with an unknown endpoint.
func (rt *Runtime) prune(t *order.Table, known func(string) bool) {
	for _, e := range t.Prune(known) {
		rt.logger.Warn("dropping constraint on unknown name",
			zap.String("table", t.Name()),
			zap.String("before", e.Before),
			zap.String("after", e.After))
	}
}

// load runs the filter-set's Load hook. On failure the filters it created
// are discarded.
func (rt *Runtime) load(s *FilterSet) error {
	s.loading = true
	err := s.plugin.Load(s)
	s.loading = false

	if err != nil {
		for _, f := range s.filters {
			delete(rt.filterNames, f.name)
		}
		s.filters = nil
		return fmt.Errorf("%w: %s: %w", ErrLoadFailed, s.name, err)
	}

	s.loaded.Store(true)
	rt.loaded = append(rt.loaded, s)
	rt.logger.Debug("loaded filter-set",
		zap.String("filterset", s.name),
		zap.Int("filters", len(s.filters)))
	return nil
}

// Dispatch runs the callback chain for call.
//
// The chain consists of the catchers for call.Op whose filter-set is active
// or which are marked inactive-ok, in filter order. It stops at the first
// callback that returns false, in which case Dispatch returns false.
// Deferred activation requests queued by the chain are applied before
// Dispatch returns. The whole chain runs under the dispatch lock.
func (rt *Runtime) Dispatch(call *api.Call) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.dirty {
		rt.rebuild()
	}
	call.Arena = rt.arena.buf

	result := true
	if call.Op >= 0 && int(call.Op) < len(rt.cache) {
		for _, c := range rt.cache[call.Op] {
			set := c.filter.set
			if !c.callback(call, CallbackData{Scratch: set.scratch, FilterSet: set}) {
				result = false
				break
			}
		}
	}

	rt.drain()
	return result
}

// rebuild recomputes the active-callback cache from the active flags.
// Caller holds mu.
func (rt *Runtime) rebuild() {
	if len(rt.cache) != rt.table.Len() {
		rt.cache = make([][]*Catcher, rt.table.Len())
	}
	for op := range rt.cache {
		rt.cache[op] = rt.cache[op][:0]
	}
	for _, f := range rt.filters {
		active := f.set.active.Load()
		for _, c := range f.catchers {
			if active || c.inactiveOK {
				rt.cache[c.op] = append(rt.cache[c.op], c)
			}
		}
	}
	rt.dirty = false
}

// computeBypass marks every operation that only the pass-through filter
// catches.
func (rt *Runtime) computeBypass() {
	rt.bypass = make([]bool, rt.table.Len())
	for op := range rt.bypass {
		rt.bypass[op] = true
	}
	for _, f := range rt.filters {
		if f.name == rt.passThrough {
			continue
		}
		for _, c := range f.catchers {
			rt.bypass[c.op] = false
		}
	}
}

// Bypass reports whether the host may call the real implementation of op
// directly, skipping Dispatch. It is false before Finalize and after
// Shutdown.
func (rt *Runtime) Bypass(op api.OperationID) bool {
	if !rt.ready || op < 0 || int(op) >= len(rt.bypass) {
		return false
	}
	return rt.bypass[op]
}
