package filters

import (
	"fmt"
	"io"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/glintercept/internal/filter"
)

// Name of the trace filter-set.
const TraceName = "trace"

// Builtins holds the built-in filter-sets registered with one runtime.
type Builtins struct {
	Log    *Log
	Invoke *Invoke
	Trace  *Trace
}

// Register registers log, invoke and trace with rt. The log filter-set
// writes to out unless its filename variable is set.
func Register(rt *filter.Runtime, out io.Writer) (*Builtins, error) {
	b := &Builtins{
		Log:    NewLog(out),
		Invoke: &Invoke{},
	}
	b.Trace = &Trace{log: b.Log, table: rt.Table()}

	logName, invokeName := rt.Bootstrap(), rt.PassThrough()
	if logName == "" {
		logName = filter.DefaultBootstrap
	}
	if invokeName == "" {
		invokeName = filter.DefaultPassThrough
	}

	infos := []filter.FilterSetInfo{
		b.Log.Info(logName),
		b.Invoke.Info(invokeName),
		b.Trace.Info(TraceName),
	}
	for _, info := range infos {
		if _, err := rt.RegisterFilterSet(info); err != nil {
			return nil, fmt.Errorf("register %s: %w", info.Name, err)
		}
	}

	if err := rt.Depends(TraceName, invokeName); err != nil {
		return nil, err
	}
	if err := rt.OrderFilters(invokeName, TraceName); err != nil {
		return nil, err
	}
	return b, nil
}

// HandleKey routes a key event to the built-in filter-sets.
func (b *Builtins) HandleKey(ev *tcell.EventKey, press bool) bool {
	return b.Trace.HandleKey(ev, press)
}
