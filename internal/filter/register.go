package filter

import (
	"fmt"

	"go.uber.org/zap"
)

// RegisterFilterSet adds a filter-set to the registry.
//
// Every filter-set except the bootstrap one implicitly depends on the
// bootstrap filter-set. Filter-sets registered while a module entry point
// runs (see RegisterModule) record that module.
func (rt *Runtime) RegisterFilterSet(info FilterSetInfo) (*FilterSet, error) {
	if rt.finalized {
		return nil, ErrFinalized
	}
	if info.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidFilterSet)
	}
	if _, exists := rt.byName[info.Name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFilterSet, info.Name)
	}
	if info.CallStateSpace < 0 {
		return nil, fmt.Errorf("%w: %s: negative call state space", ErrInvalidFilterSet, info.Name)
	}

	s := &FilterSet{
		rt:       rt,
		index:    len(rt.sets),
		name:     info.Name,
		help:     info.Help,
		plugin:   info.Plugin,
		module:   rt.currentModule,
		varIndex: make(map[string]int, len(info.Variables)),
	}
	if s.plugin == nil {
		s.plugin = Funcs{}
	}

	for _, v := range info.Variables {
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("filter-set %s: %w", info.Name, err)
		}
		if _, dup := s.varIndex[v.Name]; dup {
			return nil, fmt.Errorf("filter-set %s: %w: duplicate variable %s", info.Name, ErrInvalidVariable, v.Name)
		}
		s.varIndex[v.Name] = len(s.variables)
		s.variables = append(s.variables, v)
	}

	if info.CallStateSpace > 0 {
		offset, err := rt.arena.reserve(info.CallStateSpace)
		if err != nil {
			return nil, fmt.Errorf("filter-set %s: %w", info.Name, err)
		}
		s.offset = offset
		s.size = info.CallStateSpace
	}

	rt.sets = append(rt.sets, s)
	rt.byName[s.name] = s

	if rt.bootstrap != "" && s.name != rt.bootstrap {
		rt.depends(s.name, rt.bootstrap)
	}

	rt.logger.Debug("registered filter-set",
		zap.String("filterset", s.name),
		zap.Int("call_state", s.size))
	return s, nil
}

// RegisterModule runs a plugin entry point. Every filter-set the entry
// point registers records module as its origin.
func (rt *Runtime) RegisterModule(module Module, init func(rt *Runtime) error) error {
	if rt.finalized {
		return ErrFinalized
	}
	rt.currentModule = module
	defer func() { rt.currentModule = nil }()

	if err := init(rt); err != nil {
		return fmt.Errorf("module %s: %w", module.Path(), err)
	}
	rt.modules = append(rt.modules, module)
	return nil
}

// NewFilter creates a filter owned by set. It is only valid while set is
// loading. Filter names are unique across the runtime.
func (rt *Runtime) NewFilter(set *FilterSet, name string) (*Filter, error) {
	if !set.loading {
		return nil, fmt.Errorf("filter %s: %w: %s", name, ErrNotLoading, set.name)
	}
	if name == "" {
		return nil, fmt.Errorf("filter-set %s: empty filter name", set.name)
	}
	if _, exists := rt.filterNames[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFilter, name)
	}
	f := &Filter{name: name, set: set}
	rt.filterNames[name] = f
	set.filters = append(set.filters, f)
	return f, nil
}

// Depends declares that base requires dependency: adding base also adds
// dependency, and dependency is loaded first.
func (rt *Runtime) Depends(base, dependency string) error {
	if rt.finalized {
		return ErrFinalized
	}
	rt.depends(base, dependency)
	return nil
}

func (rt *Runtime) depends(base, dependency string) {
	rt.loadDeps.Add(base, dependency)
	rt.loadOrder.Add(dependency, base)
}

// OrderFilterSets declares that before is loaded ahead of after, without
// making either require the other.
func (rt *Runtime) OrderFilterSets(before, after string) error {
	if rt.finalized {
		return ErrFinalized
	}
	rt.loadOrder.Add(before, after)
	return nil
}

// OrderFilters declares that the callbacks of filter before run ahead of
// those of filter after, for every operation both catch.
func (rt *Runtime) OrderFilters(before, after string) error {
	if rt.finalized {
		return ErrFinalized
	}
	rt.filterOrder.Add(before, after)
	return nil
}

// Add requests that the named filter-set is loaded at Finalize, together
// with everything it depends on. If activate is set the filter-set is
// activated right after it loads. Dependencies are always activated.
func (rt *Runtime) Add(name string, activate bool) error {
	if rt.finalized {
		return ErrFinalized
	}
	s, ok := rt.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFilterSetNotFound, name)
	}
	rt.add(s, activate)
	return nil
}

// add walks dependencies depth-first and appends in post-order.
func (rt *Runtime) add(s *FilterSet, activate bool) {
	if activate {
		s.activate = true
	}
	if s.added {
		return
	}
	s.added = true

	for _, name := range rt.loadDeps.After(s.name) {
		dep, ok := rt.byName[name]
		if !ok {
			// reported and dropped by Finalize
			continue
		}
		rt.add(dep, true)
	}
	rt.requested = append(rt.requested, s)
}
