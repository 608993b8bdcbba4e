package filters

import (
	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/glintercept/internal/api"
	"github.com/dshills/glintercept/internal/filter"
	"github.com/dshills/glintercept/internal/keys"
)

// Trace logs every call after the real implementation has run.
type Trace struct {
	log    *Log
	table  *api.Table
	toggle keys.Binding
	logger *zap.Logger
	set    *filter.FilterSet
}

// Info returns the registration descriptor.
func (tr *Trace) Info(name string) filter.FilterSetInfo {
	return filter.FilterSetInfo{
		Name:   name,
		Help:   "captures a text trace of all calls made",
		Plugin: tr,
		Variables: []filter.Variable{
			{
				Name:  "key_toggle",
				Help:  "key that turns tracing on and off",
				Type:  filter.VarKey,
				Value: &tr.toggle,
			},
		},
	}
}

// Load catches every operation.
func (tr *Trace) Load(set *filter.FilterSet) error {
	tr.set = set
	tr.logger = tr.log.Logger(set.Name())
	f, err := set.NewFilter(set.Name())
	if err != nil {
		return err
	}
	return f.CatchesAll(false, tr.trace)
}

func (tr *Trace) trace(call *api.Call, _ filter.CallbackData) bool {
	fields := []zap.Field{zap.String("op", tr.table.Name(call.Op))}
	if len(call.Args) > 0 {
		fields = append(fields, zap.Any("args", call.Args))
	}
	if call.Ret != nil {
		fields = append(fields, zap.Any("ret", call.Ret))
	}
	tr.logger.Info("call", fields...)
	return true
}

// HandleKey toggles tracing when the key matches key_toggle. The request
// is deferred and applied when the next dispatched call completes. It
// reports whether the key was consumed.
func (tr *Trace) HandleKey(ev *tcell.EventKey, press bool) bool {
	if tr.set == nil || !tr.toggle.Matches(ev, press) {
		return false
	}
	if tr.set.IsActive() {
		tr.set.DeactivateDeferred()
	} else {
		tr.set.ActivateDeferred()
	}
	return true
}
