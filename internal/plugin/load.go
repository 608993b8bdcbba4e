package plugin

import (
	"errors"
	"fmt"
	goplugin "plugin"

	"go.uber.org/zap"

	"github.com/dshills/glintercept/internal/filter"
	luaplugin "github.com/dshills/glintercept/internal/plugin/lua"
)

// EntryPoint is the symbol a Go plugin exports.
const EntryPoint = "InitialiseFilterLibrary"

// EntryFunc is the type of a Go plugin's entry point.
type EntryFunc = func(rt *filter.Runtime) error

// LoadAll discovers plugins and loads each of them into rt, in name order.
// Plugins that fail are reported in the returned error; the others stay
// loaded.
func (l *Loader) LoadAll(rt *filter.Runtime) error {
	plugins, err := l.Discover()
	errs := []error{err}

	for _, info := range plugins {
		if info.Error != nil {
			l.logger.Warn("skipping plugin", zap.String("plugin", info.Name), zap.Error(info.Error))
			errs = append(errs, fmt.Errorf("plugin %s: %w", info.Name, info.Error))
			continue
		}
		if err := l.Load(rt, info); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load runs a discovered plugin's entry point against rt.
func (l *Loader) Load(rt *filter.Runtime, info *PluginInfo) error {
	if info.State == StateLoaded {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, info.Name)
	}

	var err error
	switch info.Kind {
	case KindGo:
		info.Module, err = loadGo(rt, info.Path)
	default:
		var sc *luaplugin.Script
		sc, err = luaplugin.Load(rt, info.Path, l.luaOpts...)
		if sc != nil {
			info.Module = sc
		}
	}

	if err != nil {
		info.State = StateError
		info.Error = err
		l.logger.Warn("plugin failed to load",
			zap.String("plugin", info.Name),
			zap.Stringer("kind", info.Kind),
			zap.Error(err))
		return fmt.Errorf("plugin %s: %w", info.Name, err)
	}

	info.State = StateLoaded
	l.logger.Debug("plugin loaded",
		zap.String("plugin", info.Name),
		zap.Stringer("kind", info.Kind),
		zap.String("path", info.Path))
	return nil
}

// goModule is a shared object opened with the plugin package.
type goModule struct {
	path string
	p    *goplugin.Plugin
}

func (m *goModule) Path() string { return m.path }

// Lookup resolves an exported symbol.
func (m *goModule) Lookup(symbol string) (any, error) {
	sym, err := m.p.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", filter.ErrNoSymbol, symbol, err)
	}
	return sym, nil
}

func loadGo(rt *filter.Runtime, path string) (filter.Module, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	m := &goModule{path: path, p: p}

	sym, err := m.Lookup(EntryPoint)
	if err != nil {
		return nil, err
	}
	entry, err := entryFunc(sym)
	if err != nil {
		return nil, err
	}

	if err := rt.RegisterModule(m, entry); err != nil {
		return nil, err
	}
	return m, nil
}

// entryFunc accepts the entry point as a function or as a variable
// holding one.
func entryFunc(sym any) (EntryFunc, error) {
	switch fn := sym.(type) {
	case EntryFunc:
		return fn, nil
	case *EntryFunc:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	}
	return nil, fmt.Errorf("%w: %s is %T", ErrBadEntryPoint, EntryPoint, sym)
}
