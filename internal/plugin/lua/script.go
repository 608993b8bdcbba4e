package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/glintercept/internal/filter"
)

// Script is a Lua plugin module. It owns the Lua state its filter-sets run
// in and closes it when the runtime shuts down.
type Script struct {
	path  string
	state *State
	rt    *filter.Runtime
	sets  []*filter.FilterSet
	uds   map[*filter.FilterSet]*lua.LUserData
}

// Load runs the script at path and registers the filter-sets it declares
// with rt.
func Load(rt *filter.Runtime, path string, opts ...StateOption) (*Script, error) {
	sc := newScript(rt, path, opts...)
	if err := sc.register(func() error { return sc.state.DoFile(path) }); err != nil {
		return nil, err
	}
	return sc, nil
}

// LoadString is like Load but takes the script source. name identifies the
// module in errors and logs.
func LoadString(rt *filter.Runtime, name, source string, opts ...StateOption) (*Script, error) {
	sc := newScript(rt, name, opts...)
	if err := sc.register(func() error { return sc.state.DoString(source) }); err != nil {
		return nil, err
	}
	return sc, nil
}

func newScript(rt *filter.Runtime, path string, opts ...StateOption) *Script {
	sc := &Script{
		path:  path,
		state: NewState(opts...),
		rt:    rt,
		uds:   make(map[*filter.FilterSet]*lua.LUserData),
	}
	sc.state.PreloadModule(moduleName, sc.openModule)
	return sc
}

func (sc *Script) register(run func() error) error {
	err := sc.rt.RegisterModule(sc, func(*filter.Runtime) error { return run() })
	if err != nil {
		_ = sc.state.Close()
		return fmt.Errorf("lua: %w", err)
	}
	return nil
}

// Path returns the script path.
func (sc *Script) Path() string { return sc.path }

// Close closes the Lua state.
func (sc *Script) Close() error { return sc.state.Close() }

// Lookup returns the value of a global the script defined. Functions are
// returned as *lua.LFunction.
func (sc *Script) Lookup(symbol string) (any, error) {
	var value any
	err := sc.state.run(false, func() error {
		lv := sc.state.L.GetGlobal(symbol)
		if lv == lua.LNil {
			return fmt.Errorf("%w: %s", filter.ErrNoSymbol, symbol)
		}
		switch v := lv.(type) {
		case *lua.LFunction, *lua.LTable:
			value = v
		default:
			value = fromLua(v)
		}
		return nil
	})
	return value, err
}

// FilterSets returns the filter-sets the script registered.
func (sc *Script) FilterSets() []*filter.FilterSet {
	out := make([]*filter.FilterSet, len(sc.sets))
	copy(out, sc.sets)
	return out
}

// scriptPlugin forwards filter-set lifecycle hooks to Lua functions.
type scriptPlugin struct {
	sc         *Script
	ud         *lua.LUserData
	load       *lua.LFunction
	unload     *lua.LFunction
	activate   *lua.LFunction
	deactivate *lua.LFunction
}

func (p *scriptPlugin) Load(set *filter.FilterSet) error {
	if p.load == nil {
		return nil
	}
	ret, err := p.sc.state.Call(p.load, true, p.ud)
	if err != nil {
		return err
	}
	if len(ret) > 0 && ret[0] == lua.LFalse {
		if len(ret) > 1 && ret[1] != lua.LNil {
			return fmt.Errorf("%w: %s", ErrLoadRejected, ret[1].String())
		}
		return ErrLoadRejected
	}
	return nil
}

func (p *scriptPlugin) Unload(set *filter.FilterSet) {
	p.hook(set, "unload", p.unload)
}

func (p *scriptPlugin) Activate(set *filter.FilterSet) {
	p.hook(set, "activate", p.activate)
}

func (p *scriptPlugin) Deactivate(set *filter.FilterSet) {
	p.hook(set, "deactivate", p.deactivate)
}

func (p *scriptPlugin) hook(set *filter.FilterSet, name string, fn *lua.LFunction) {
	if fn == nil {
		return
	}
	if _, err := p.sc.state.Call(fn, true, p.ud); err != nil {
		set.Logger().Warn("lua hook failed", zap.String("hook", name), zap.Error(err))
	}
}
