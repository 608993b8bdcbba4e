package filter

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// maxDrainRounds bounds how often deferred requests queued by activation
// hooks are re-drained within one lock section.
const maxDrainRounds = 64

// deferredQueue holds transitions requested from inside callbacks.
// It has its own lock so callbacks can queue while the dispatch lock is held.
type deferredQueue struct {
	mu            sync.Mutex
	activations   []*FilterSet
	deactivations []*FilterSet
}

func (q *deferredQueue) push(s *FilterSet, activate bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if activate {
		q.activations = append(q.activations, s)
	} else {
		q.deactivations = append(q.deactivations, s)
	}
}

func (q *deferredQueue) take() (activations, deactivations []*FilterSet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	activations, deactivations = q.activations, q.deactivations
	q.activations, q.deactivations = nil, nil
	return activations, deactivations
}

// Activate activates the named filter-set. It takes the dispatch lock and
// must not be called from a callback or hook.
func (rt *Runtime) Activate(name string) error {
	s, ok := rt.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFilterSetNotFound, name)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if err := rt.activate(s); err != nil {
		return err
	}
	rt.drain()
	return nil
}

// Deactivate deactivates the named filter-set. It takes the dispatch lock
// and must not be called from a callback or hook.
func (rt *Runtime) Deactivate(name string) error {
	s, ok := rt.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFilterSetNotFound, name)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if err := rt.deactivate(s); err != nil {
		return err
	}
	rt.drain()
	return nil
}

// activate runs the hook and marks the cache dirty. Caller holds mu, or is
// the single-threaded Finalize.
func (rt *Runtime) activate(s *FilterSet) error {
	if !s.loaded.Load() {
		return fmt.Errorf("%w: %s", ErrNotLoaded, s.name)
	}
	if s.active.Load() {
		return nil
	}
	if a, ok := s.plugin.(Activator); ok {
		a.Activate(s)
	}
	s.active.Store(true)
	rt.dirty = true
	rt.logger.Debug("activated filter-set", zap.String("filterset", s.name))
	return nil
}

func (rt *Runtime) deactivate(s *FilterSet) error {
	if !s.loaded.Load() {
		return fmt.Errorf("%w: %s", ErrNotLoaded, s.name)
	}
	if !s.active.Load() {
		return nil
	}
	if d, ok := s.plugin.(Deactivator); ok {
		d.Deactivate(s)
	}
	s.active.Store(false)
	rt.dirty = true
	rt.logger.Debug("deactivated filter-set", zap.String("filterset", s.name))
	return nil
}

// drain applies deferred requests: activations first, then deactivations,
// again while hooks keep queueing more. Caller holds mu.
func (rt *Runtime) drain() {
	for round := 0; ; round++ {
		activations, deactivations := rt.deferred.take()
		if len(activations) == 0 && len(deactivations) == 0 {
			return
		}
		if round == maxDrainRounds {
			rt.logger.Warn("dropping deferred activations queued by hooks",
				zap.Int("activations", len(activations)),
				zap.Int("deactivations", len(deactivations)))
			return
		}
		for _, s := range activations {
			if err := rt.activate(s); err != nil {
				rt.logger.Warn("deferred activation failed", zap.Error(err))
			}
		}
		for _, s := range deactivations {
			if err := rt.deactivate(s); err != nil {
				rt.logger.Warn("deferred deactivation failed", zap.Error(err))
			}
		}
	}
}

// Shutdown deactivates and unloads every loaded filter-set in reverse load
// order, then closes the modules they came from. After Shutdown, Dispatch
// runs no callbacks.
func (rt *Runtime) Shutdown() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.deferred.take()
	for i := len(rt.loaded) - 1; i >= 0; i-- {
		s := rt.loaded[i]
		if err := rt.deactivate(s); err != nil {
			rt.logger.Warn("deactivate at shutdown", zap.Error(err))
		}
		if u, ok := s.plugin.(Unloader); ok {
			u.Unload(s)
		}
		s.loaded.Store(false)
		for _, f := range s.filters {
			delete(rt.filterNames, f.name)
		}
		s.filters = nil
		rt.logger.Debug("unloaded filter-set", zap.String("filterset", s.name))
	}
	rt.deferred.take()
	rt.ready = false
	rt.loaded = nil
	rt.filters = nil
	rt.dirty = true

	var errs []error
	for i := len(rt.modules) - 1; i >= 0; i-- {
		if c, ok := rt.modules[i].(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close module %s: %w", rt.modules[i].Path(), err))
			}
		}
	}
	rt.modules = nil
	return errors.Join(errs...)
}
