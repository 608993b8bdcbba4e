package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/glintercept/internal/filter"
	luaplugin "github.com/dshills/glintercept/internal/plugin/lua"
)

// PathEnv names the environment variable that overrides the default
// search paths.
const PathEnv = "GLINTERCEPT_PLUGIN_DIR"

// Plugin file extensions.
const (
	extLua = ".lua"
	extGo  = ".so"
)

// Loader discovers and loads plugins from the filesystem.
type Loader struct {
	// Search paths for plugins (checked in order)
	paths []string

	// Discovered plugins cache
	discovered map[string]*PluginInfo

	logger  *zap.Logger
	luaOpts []luaplugin.StateOption
}

// PluginInfo contains discovery information about a plugin.
type PluginInfo struct {
	Name  string
	Path  string
	Kind  Kind
	State State
	Error error

	// Module is set once the plugin is loaded.
	Module filter.Module
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// WithLogger sets the logger used to report discovery and load results.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLuaOptions sets the options for the Lua states of script plugins.
func WithLuaOptions(opts ...luaplugin.StateOption) LoaderOption {
	return func(l *Loader) {
		l.luaOpts = opts
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPluginPaths(),
		discovered: make(map[string]*PluginInfo),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// DefaultPluginPaths returns the default plugin search paths, or the
// directories listed in GLINTERCEPT_PLUGIN_DIR if it is set.
func DefaultPluginPaths() []string {
	if env := os.Getenv(PathEnv); env != "" {
		var paths []string
		for _, p := range filepath.SplitList(env) {
			if p != "" {
				paths = append(paths, p)
			}
		}
		return paths
	}

	paths := make([]string, 0, 3)

	// User plugins: ~/.config/glintercept/plugins/
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "glintercept", "plugins"))
		paths = append(paths, filepath.Join(home, ".local", "share", "glintercept", "plugins"))
	}

	// Working directory plugins: .glintercept/plugins/
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".glintercept", "plugins"))
	}

	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// AddPath adds a search path.
func (l *Loader) AddPath(path string) {
	l.paths = append(l.paths, path)
}

// Discover finds all plugins in the search paths.
// Returns plugins sorted by name.
func (l *Loader) Discover() ([]*PluginInfo, error) {
	l.discovered = make(map[string]*PluginInfo)

	var errs []error
	for _, basePath := range l.paths {
		if err := l.discoverInPath(basePath); err != nil {
			errs = append(errs, err)
		}
	}

	plugins := make([]*PluginInfo, 0, len(l.discovered))
	for _, info := range l.discovered {
		plugins = append(plugins, info)
	}

	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Name < plugins[j].Name
	})

	return plugins, errors.Join(errs...)
}

// discoverInPath finds plugins in a single directory.
func (l *Loader) discoverInPath(basePath string) error {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Not an error if path doesn't exist
		}
		return err
	}

	for _, entry := range entries {
		info := l.inspect(basePath, entry)
		if info == nil {
			continue
		}

		// Don't override earlier discoveries (first path wins)
		if prev, exists := l.discovered[info.Name]; exists {
			l.logger.Debug("plugin shadowed",
				zap.String("plugin", info.Name),
				zap.String("path", info.Path),
				zap.String("by", prev.Path))
			continue
		}
		l.discovered[info.Name] = info
	}

	return nil
}

// inspect returns the plugin an entry describes, or nil if it is not one.
func (l *Loader) inspect(basePath string, entry fs.DirEntry) *PluginInfo {
	path := filepath.Join(basePath, entry.Name())

	if entry.IsDir() {
		info := &PluginInfo{Name: entry.Name(), Kind: KindLua, Path: filepath.Join(path, "init.lua")}
		if _, err := os.Stat(info.Path); err != nil {
			info.Path = path
			info.Error = ErrNoEntryPoint
			info.State = StateError
		}
		return info
	}

	switch ext := filepath.Ext(entry.Name()); ext {
	case extLua:
		return &PluginInfo{Name: strings.TrimSuffix(entry.Name(), ext), Path: path, Kind: KindLua}
	case extGo:
		return &PluginInfo{Name: strings.TrimSuffix(entry.Name(), ext), Path: path, Kind: KindGo}
	default:
		return nil
	}
}

// Get returns info for a specific plugin by name.
func (l *Loader) Get(name string) (*PluginInfo, bool) {
	info, ok := l.discovered[name]
	return info, ok
}

// FindPlugin searches for a plugin by name across all paths.
// Returns the first match found.
func (l *Loader) FindPlugin(name string) (*PluginInfo, error) {
	if info, ok := l.discovered[name]; ok {
		return info, nil
	}

	for _, basePath := range l.paths {
		for _, candidate := range []string{name, name + extGo, name + extLua} {
			stat, err := os.Stat(filepath.Join(basePath, candidate))
			if err != nil {
				continue
			}
			info := l.inspect(basePath, fs.FileInfoToDirEntry(stat))
			if info != nil && info.Error == nil {
				l.discovered[name] = info
				return info, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}

// ListNames returns the names of all discovered plugins.
func (l *Loader) ListNames() []string {
	names := make([]string, 0, len(l.discovered))
	for name := range l.discovered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of discovered plugins.
func (l *Loader) Count() int {
	return len(l.discovered)
}

// Errors returns all plugins that have errors.
func (l *Loader) Errors() []*PluginInfo {
	var errored []*PluginInfo
	for _, info := range l.discovered {
		if info.Error != nil {
			errored = append(errored, info)
		}
	}
	sort.Slice(errored, func(i, j int) bool {
		return errored[i].Name < errored[j].Name
	})
	return errored
}
