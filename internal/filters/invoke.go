package filters

import (
	"github.com/dshills/glintercept/internal/api"
	"github.com/dshills/glintercept/internal/filter"
)

// Invoke is the pass-through filter-set.
type Invoke struct {
	calls uint64
}

// Info returns the registration descriptor.
func (v *Invoke) Info(name string) filter.FilterSetInfo {
	return filter.FilterSetInfo{
		Name:   name,
		Help:   "calls the real implementation",
		Plugin: v,
	}
}

// Load catches every operation, including while inactive.
func (v *Invoke) Load(set *filter.FilterSet) error {
	f, err := set.NewFilter(set.Name())
	if err != nil {
		return err
	}
	return f.CatchesAll(true, v.invoke)
}

func (v *Invoke) invoke(call *api.Call, _ filter.CallbackData) bool {
	if call.Invoke() {
		v.calls++
	}
	return true
}

// Calls returns the number of calls forwarded so far. Only read it while no
// dispatch is in flight.
func (v *Invoke) Calls() uint64 {
	return v.calls
}
