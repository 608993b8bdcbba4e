package filter

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/glintercept/internal/api"
	"github.com/dshills/glintercept/internal/order"
)

func TestRegisterFilterSetErrors(t *testing.T) {
	rt := newTestRuntime()
	if _, err := rt.RegisterFilterSet(FilterSetInfo{Name: "a"}); err != nil {
		t.Fatalf("RegisterFilterSet(a) error = %v", err)
	}

	tests := []struct {
		name string
		info FilterSetInfo
		want error
	}{
		{"duplicate", FilterSetInfo{Name: "a"}, ErrDuplicateFilterSet},
		{"empty name", FilterSetInfo{}, ErrInvalidFilterSet},
		{"negative space", FilterSetInfo{Name: "b", CallStateSpace: -1}, ErrInvalidFilterSet},
		{"bad variable", FilterSetInfo{Name: "c", Variables: []Variable{{Name: "x", Type: VarBool, Value: new(string)}}}, ErrInvalidVariable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.RegisterFilterSet(tt.info)
			if !errors.Is(err, tt.want) {
				t.Errorf("RegisterFilterSet() error = %v, want %v", err, tt.want)
			}
		})
	}

	if got := len(rt.FilterSets()); got != 1 {
		t.Errorf("FilterSets() len = %d, want 1", got)
	}
}

func TestRegistrationAfterFinalize(t *testing.T) {
	rt := newTestRuntime()
	registerSimple(t, rt, "a", "fa", nil)
	mustAdd(t, rt, "a", true)
	mustFinalize(t, rt)

	if _, err := rt.RegisterFilterSet(FilterSetInfo{Name: "b"}); !errors.Is(err, ErrFinalized) {
		t.Errorf("RegisterFilterSet() error = %v, want ErrFinalized", err)
	}
	if err := rt.Depends("a", "b"); !errors.Is(err, ErrFinalized) {
		t.Errorf("Depends() error = %v, want ErrFinalized", err)
	}
	if err := rt.OrderFilterSets("a", "b"); !errors.Is(err, ErrFinalized) {
		t.Errorf("OrderFilterSets() error = %v, want ErrFinalized", err)
	}
	if err := rt.OrderFilters("a", "b"); !errors.Is(err, ErrFinalized) {
		t.Errorf("OrderFilters() error = %v, want ErrFinalized", err)
	}
	if err := rt.Add("a", true); !errors.Is(err, ErrFinalized) {
		t.Errorf("Add() error = %v, want ErrFinalized", err)
	}
	if err := rt.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Errorf("Finalize() again error = %v, want ErrFinalized", err)
	}
}

func TestAddUnknown(t *testing.T) {
	rt := newTestRuntime()
	if err := rt.Add("ghost", true); !errors.Is(err, ErrFilterSetNotFound) {
		t.Errorf("Add(ghost) error = %v, want ErrFilterSetNotFound", err)
	}
}

func TestBootstrapDependency(t *testing.T) {
	rt := New(testTable())
	registerSimple(t, rt, "a", "fa", nil)
	registerSimple(t, rt, DefaultBootstrap, "log", nil)

	mustAdd(t, rt, "a", false)
	mustFinalize(t, rt)

	if got, want := rt.LoadOrder(), []string{"log", "a"}; !equalStrings(got, want) {
		t.Errorf("LoadOrder() = %v, want %v", got, want)
	}
	if !rt.IsActive("log") {
		t.Error("bootstrap filter-set should be active as a dependency")
	}
	if rt.IsActive("a") || !rt.IsLoaded("a") {
		t.Errorf("a state = %v, want loaded", mustSet(t, rt, "a").State())
	}
}

func TestAddDependencyPostOrder(t *testing.T) {
	rt := newTestRuntime()
	for _, name := range []string{"a", "b", "c", "unused"} {
		registerSimple(t, rt, name, "f"+name, nil)
	}
	if err := rt.Depends("a", "b"); err != nil {
		t.Fatalf("Depends() error = %v", err)
	}
	if err := rt.Depends("b", "c"); err != nil {
		t.Fatalf("Depends() error = %v", err)
	}

	mustAdd(t, rt, "a", false)
	mustFinalize(t, rt)

	if got, want := rt.LoadOrder(), []string{"c", "b", "a"}; !equalStrings(got, want) {
		t.Errorf("LoadOrder() = %v, want %v", got, want)
	}
	if !rt.IsActive("b") || !rt.IsActive("c") {
		t.Error("dependencies should be activated")
	}
	if rt.IsActive("a") {
		t.Error("a was added without activation")
	}
	if rt.IsLoaded("unused") {
		t.Error("filter-set that was never added should not load")
	}
}

func TestAddLaterRequestActivates(t *testing.T) {
	rt := newTestRuntime()
	registerSimple(t, rt, "a", "fa", nil)
	mustAdd(t, rt, "a", false)
	mustAdd(t, rt, "a", true)
	mustFinalize(t, rt)

	if !rt.IsActive("a") {
		t.Error("a should be active after a later activating Add")
	}
	if got := rt.LoadOrder(); len(got) != 1 {
		t.Errorf("LoadOrder() = %v, want a once", got)
	}
}

func TestFixturePermutation(t *testing.T) {
	rt := newTestRuntime()
	rec := &recorder{}
	registerSimple(t, rt, "A", "f_A", rec.callback("f_A", true), opDraw)
	registerSimple(t, rt, "B", "f_B", rec.callback("f_B", true), opDraw)
	registerSimple(t, rt, "C", "f_C", rec.callback("f_C", true), opDraw)

	if err := rt.Depends("A", "B"); err != nil {
		t.Fatalf("Depends() error = %v", err)
	}
	if err := rt.OrderFilterSets("C", "A"); err != nil {
		t.Fatalf("OrderFilterSets() error = %v", err)
	}
	if err := rt.OrderFilters("f_C", "f_A"); err != nil {
		t.Fatalf("OrderFilters() error = %v", err)
	}
	for _, name := range []string{"A", "B", "C"} {
		mustAdd(t, rt, name, true)
	}
	mustFinalize(t, rt)

	if got, want := rt.LoadOrder(), []string{"B", "C", "A"}; !equalStrings(got, want) {
		t.Errorf("LoadOrder() = %v, want %v", got, want)
	}
	if got, want := rt.FilterOrder(), []string{"f_B", "f_C", "f_A"}; !equalStrings(got, want) {
		t.Errorf("FilterOrder() = %v, want %v", got, want)
	}

	rt.Dispatch(api.NewCall(opDraw))
	if want := []string{"f_B", "f_C", "f_A"}; !equalStrings(rec.calls, want) {
		t.Errorf("dispatch order = %v, want %v", rec.calls, want)
	}
}

func TestOrderFiltersOrientation(t *testing.T) {
	// Registration order alone would run first before second.
	rt := newTestRuntime()
	rec := &recorder{}
	registerSimple(t, rt, "one", "first", rec.callback("first", true), opBegin)
	registerSimple(t, rt, "two", "second", rec.callback("second", true), opBegin)
	if err := rt.OrderFilters("second", "first"); err != nil {
		t.Fatalf("OrderFilters() error = %v", err)
	}
	mustAdd(t, rt, "one", true)
	mustAdd(t, rt, "two", true)
	mustFinalize(t, rt)

	rt.Dispatch(api.NewCall(opBegin))
	if want := []string{"second", "first"}; !equalStrings(rec.calls, want) {
		t.Errorf("dispatch order = %v, want %v", rec.calls, want)
	}
}

func TestFinalizeCycles(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(rt *Runtime)
		wantTable string
	}{
		{
			name: "filter-set dependencies",
			setup: func(rt *Runtime) {
				_ = rt.Depends("a", "b")
				_ = rt.Depends("b", "a")
			},
			wantTable: tableLoadOrder,
		},
		{
			name: "filter-set order",
			setup: func(rt *Runtime) {
				_ = rt.OrderFilterSets("a", "b")
				_ = rt.OrderFilterSets("b", "a")
			},
			wantTable: tableLoadOrder,
		},
		{
			name: "filter order",
			setup: func(rt *Runtime) {
				_ = rt.OrderFilters("fa", "fb")
				_ = rt.OrderFilters("fb", "fa")
			},
			wantTable: tableFilterOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newTestRuntime()
			registerSimple(t, rt, "a", "fa", nil)
			registerSimple(t, rt, "b", "fb", nil)
			tt.setup(rt)
			mustAdd(t, rt, "a", true)
			mustAdd(t, rt, "b", true)

			err := rt.Finalize()
			if !errors.Is(err, order.ErrCyclicDependency) {
				t.Fatalf("Finalize() error = %v, want ErrCyclicDependency", err)
			}
			var cerr *order.CycleError
			if !errors.As(err, &cerr) {
				t.Fatalf("Finalize() error = %T, want *order.CycleError", err)
			}
			if cerr.Table != tt.wantTable {
				t.Errorf("CycleError.Table = %q, want %q", cerr.Table, tt.wantTable)
			}
			if len(cerr.Constraints) == 0 {
				t.Error("CycleError should name an offending constraint")
			}
		})
	}
}

func TestUnknownConstraintsDropped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rt := newTestRuntime(WithLogger(zap.New(core)))
	registerSimple(t, rt, "a", "fa", nil)

	if err := rt.Depends("a", "ghost"); err != nil {
		t.Fatalf("Depends() error = %v", err)
	}
	if err := rt.OrderFilters("fa", "nobody"); err != nil {
		t.Fatalf("OrderFilters() error = %v", err)
	}
	mustAdd(t, rt, "a", true)
	mustFinalize(t, rt)

	if !rt.IsActive("a") {
		t.Error("a should be active")
	}
	// one edge per load-dependency table plus the filter edge
	if got := logs.FilterMessage("dropping constraint on unknown name").Len(); got != 3 {
		t.Errorf("dropped constraint warnings = %d, want 3", got)
	}
}

func TestLoadFailure(t *testing.T) {
	rt := newTestRuntime()
	var unloaded []string
	boom := errors.New("boom")

	for _, name := range []string{"good", "bad"} {
		name := name
		_, err := rt.RegisterFilterSet(FilterSetInfo{
			Name: name,
			Plugin: Funcs{
				LoadFunc: func(s *FilterSet) error {
					if _, err := s.NewFilter("f" + name); err != nil {
						return err
					}
					if name == "bad" {
						return boom
					}
					return nil
				},
				UnloadFunc: func(s *FilterSet) { unloaded = append(unloaded, s.Name()) },
			},
		})
		if err != nil {
			t.Fatalf("RegisterFilterSet(%s) error = %v", name, err)
		}
		mustAdd(t, rt, name, true)
	}

	err := rt.Finalize()
	if !errors.Is(err, ErrLoadFailed) || !errors.Is(err, boom) {
		t.Fatalf("Finalize() error = %v, want ErrLoadFailed wrapping boom", err)
	}

	bad := mustSet(t, rt, "bad")
	if bad.IsLoaded() || len(bad.Filters()) != 0 {
		t.Error("failed filter-set should have no filters and not be loaded")
	}

	if err := rt.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if want := []string{"good"}; !equalStrings(unloaded, want) {
		t.Errorf("unloaded = %v, want %v", unloaded, want)
	}
}

func TestNewFilterOutsideLoad(t *testing.T) {
	rt := newTestRuntime()
	var kept *Filter
	s, err := rt.RegisterFilterSet(FilterSetInfo{
		Name: "a",
		Plugin: Funcs{LoadFunc: func(s *FilterSet) error {
			f, err := s.NewFilter("fa")
			kept = f
			return err
		}},
	})
	if err != nil {
		t.Fatalf("RegisterFilterSet() error = %v", err)
	}

	if _, err := s.NewFilter("early"); !errors.Is(err, ErrNotLoading) {
		t.Errorf("NewFilter() before load error = %v, want ErrNotLoading", err)
	}

	mustAdd(t, rt, "a", true)
	mustFinalize(t, rt)

	if _, err := s.NewFilter("late"); !errors.Is(err, ErrNotLoading) {
		t.Errorf("NewFilter() after load error = %v, want ErrNotLoading", err)
	}
	noop := func(*api.Call, CallbackData) bool { return true }
	if err := kept.CatchesID(opBegin, false, noop); !errors.Is(err, ErrNotLoading) {
		t.Errorf("CatchesID() after load error = %v, want ErrNotLoading", err)
	}
}

func TestDuplicateFilterName(t *testing.T) {
	rt := newTestRuntime()
	registerSimple(t, rt, "a", "same", nil)
	registerSimple(t, rt, "b", "same", nil)
	mustAdd(t, rt, "a", true)
	mustAdd(t, rt, "b", true)

	err := rt.Finalize()
	if !errors.Is(err, ErrDuplicateFilter) || !errors.Is(err, ErrLoadFailed) {
		t.Errorf("Finalize() error = %v, want ErrLoadFailed wrapping ErrDuplicateFilter", err)
	}
}

func TestCatchesGroupsAndFunctions(t *testing.T) {
	rt := newTestRuntime()
	noop := func(*api.Call, CallbackData) bool { return true }

	var loadErrs []error
	_, err := rt.RegisterFilterSet(FilterSetInfo{
		Name: "a",
		Plugin: Funcs{LoadFunc: func(s *FilterSet) error {
			group, _ := s.NewFilter("group")
			fn, _ := s.NewFilter("function")
			all, _ := s.NewFilter("all")
			loadErrs = append(loadErrs,
				group.Catches("glDrawArrays", false, noop),
				fn.CatchesFunction("glDrawArraysEXT", false, noop),
				all.CatchesAll(true, noop),
			)
			return nil
		}},
	})
	if err != nil {
		t.Fatalf("RegisterFilterSet() error = %v", err)
	}
	mustAdd(t, rt, "a", true)
	mustFinalize(t, rt)

	for i, err := range loadErrs {
		if err != nil {
			t.Errorf("catch %d error = %v", i, err)
		}
	}

	ops := func(f *Filter) []api.OperationID {
		var out []api.OperationID
		for _, c := range f.Catchers() {
			out = append(out, c.Op())
		}
		return out
	}
	filters := mustSet(t, rt, "a").Filters()
	if got := ops(filters[0]); len(got) != 2 || got[0] != opDraw || got[1] != opDrawEXT {
		t.Errorf("group catchers = %v, want [%d %d]", got, opDraw, opDrawEXT)
	}
	if got := ops(filters[1]); len(got) != 1 || got[0] != opDrawEXT {
		t.Errorf("function catchers = %v, want [%d]", got, opDrawEXT)
	}
	if got := ops(filters[2]); len(got) != 4 {
		t.Errorf("catch-all catchers = %v, want 4", got)
	}
	if !filters[2].Catchers()[0].InactiveOK() || filters[2].Catchers()[0].Filter() != filters[2] {
		t.Error("catch-all catcher should be inactive-ok and owned by its filter")
	}
}

func TestCatchesUnknown(t *testing.T) {
	rt := newTestRuntime()
	noop := func(*api.Call, CallbackData) bool { return true }

	var errs []error
	_, err := rt.RegisterFilterSet(FilterSetInfo{
		Name: "a",
		Plugin: Funcs{LoadFunc: func(s *FilterSet) error {
			f, _ := s.NewFilter("fa")
			errs = append(errs,
				f.Catches("glNope", false, noop),
				f.CatchesFunction("glNope", false, noop),
				f.CatchesID(42, false, noop),
			)
			return nil
		}},
	})
	if err != nil {
		t.Fatalf("RegisterFilterSet() error = %v", err)
	}
	mustAdd(t, rt, "a", true)
	mustFinalize(t, rt)

	for i, err := range errs {
		if !errors.Is(err, ErrUnknownOperation) {
			t.Errorf("catch %d error = %v, want ErrUnknownOperation", i, err)
		}
	}
}

type fakeModule struct {
	path    string
	symbols map[string]any
	closed  bool
}

func (m *fakeModule) Path() string { return m.path }

func (m *fakeModule) Close() error {
	m.closed = true
	return nil
}

type symbolModule struct {
	fakeModule
}

func (m *symbolModule) Lookup(symbol string) (any, error) {
	v, ok := m.symbols[symbol]
	if !ok {
		return nil, ErrNoSymbol
	}
	return v, nil
}

func TestRegisterModule(t *testing.T) {
	rt := newTestRuntime()
	plain := &fakeModule{path: "plain.so"}
	withSyms := &symbolModule{fakeModule{path: "syms.so", symbols: map[string]any{"version": 3}}}

	err := rt.RegisterModule(plain, func(rt *Runtime) error {
		_, err := rt.RegisterFilterSet(FilterSetInfo{Name: "p"})
		return err
	})
	if err != nil {
		t.Fatalf("RegisterModule(plain) error = %v", err)
	}
	err = rt.RegisterModule(withSyms, func(rt *Runtime) error {
		_, err := rt.RegisterFilterSet(FilterSetInfo{Name: "s"})
		return err
	})
	if err != nil {
		t.Fatalf("RegisterModule(syms) error = %v", err)
	}
	host, _ := rt.RegisterFilterSet(FilterSetInfo{Name: "host"})

	p, s := mustSet(t, rt, "p"), mustSet(t, rt, "s")
	if p.Module() != plain || s.Module() != withSyms || host.Module() != nil {
		t.Error("filter-sets should record the module that registered them")
	}
	if _, err := p.Lookup("version"); !errors.Is(err, ErrNoSymbol) {
		t.Errorf("Lookup() on plain module error = %v, want ErrNoSymbol", err)
	}
	if v, err := s.Lookup("version"); err != nil || v != 3 {
		t.Errorf("Lookup(version) = %v, %v, want 3", v, err)
	}

	failing := errors.New("init failed")
	if err := rt.RegisterModule(&fakeModule{path: "bad.so"}, func(*Runtime) error { return failing }); !errors.Is(err, failing) {
		t.Errorf("RegisterModule(bad) error = %v, want %v", err, failing)
	}

	mustFinalize(t, rt)
	if err := rt.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !plain.closed || !withSyms.closed {
		t.Error("Shutdown should close modules")
	}
}

func TestSessionLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rt := newTestRuntime(WithLogger(zap.New(core)))
	mustFinalize(t, rt)

	entries := logs.FilterMessage("filter-sets loaded").All()
	if len(entries) != 1 {
		t.Fatalf("load log entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["session"]; got != rt.Session().String() {
		t.Errorf("session field = %v, want %s", got, rt.Session())
	}
}

func mustSet(t *testing.T, rt *Runtime, name string) *FilterSet {
	t.Helper()
	s, ok := rt.FilterSet(name)
	if !ok {
		t.Fatalf("FilterSet(%s) not found", name)
	}
	return s
}
