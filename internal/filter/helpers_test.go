package filter

import (
	"testing"

	"github.com/dshills/glintercept/internal/api"
)

// Operation IDs of testTable.
const (
	opBegin api.OperationID = iota
	opDraw
	opDrawEXT
	opEnd
)

func testTable() *api.Table {
	return api.MustTable(
		api.Entry{Name: "glBegin"},
		api.Entry{Name: "glDrawArrays"},
		api.Entry{Name: "glDrawArraysEXT", Group: "glDrawArrays"},
		api.Entry{Name: "glEnd"},
	)
}

// newTestRuntime returns a runtime without a bootstrap filter-set.
func newTestRuntime(opts ...Option) *Runtime {
	return New(testTable(), append([]Option{WithBootstrap("")}, opts...)...)
}

// recorder collects the names of callbacks in the order they run.
type recorder struct {
	calls []string
}

func (r *recorder) callback(name string, result bool) Callback {
	return func(*api.Call, CallbackData) bool {
		r.calls = append(r.calls, name)
		return result
	}
}

func (r *recorder) reset() {
	r.calls = nil
}

// registerSimple registers a filter-set that creates one filter catching ops.
func registerSimple(t *testing.T, rt *Runtime, set, filter string, cb Callback, ops ...api.OperationID) *FilterSet {
	t.Helper()
	s, err := rt.RegisterFilterSet(FilterSetInfo{
		Name: set,
		Help: set + " filter-set",
		Plugin: Funcs{LoadFunc: func(s *FilterSet) error {
			f, err := s.NewFilter(filter)
			if err != nil {
				return err
			}
			for _, op := range ops {
				if err := f.CatchesID(op, false, cb); err != nil {
					return err
				}
			}
			return nil
		}},
	})
	if err != nil {
		t.Fatalf("RegisterFilterSet(%s) error = %v", set, err)
	}
	return s
}

func mustAdd(t *testing.T, rt *Runtime, name string, activate bool) {
	t.Helper()
	if err := rt.Add(name, activate); err != nil {
		t.Fatalf("Add(%s) error = %v", name, err)
	}
}

func mustFinalize(t *testing.T, rt *Runtime) {
	t.Helper()
	if err := rt.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
