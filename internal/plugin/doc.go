// Package plugin discovers and loads filter-set plugins.
//
// A plugin is a module with a single entry point that runs once, when the
// plugin is loaded, and registers filter-sets with a filter.Runtime. Two
// kinds are supported:
//
// Go plugins are shared objects built with -buildmode=plugin that export
//
//	func InitialiseFilterLibrary(rt *filter.Runtime) error
//
// Lua plugins are scripts that use the glintercept module (see package
// plugin/lua).
//
// # Layout
//
// Plugins are looked up in each search path in order. The first plugin
// found with a given name wins:
//
//	~/.config/glintercept/plugins/
//	├── errorcheck.so        # Go plugin "errorcheck"
//	├── drawcount.lua        # Lua plugin "drawcount"
//	└── capture/             # Lua plugin "capture"
//	    └── init.lua
//
// GLINTERCEPT_PLUGIN_DIR, a list of directories separated by the OS path
// list separator, replaces the default search paths.
//
// # Loading
//
//	loader := plugin.NewLoader(plugin.WithLogger(logger))
//	if err := loader.LoadAll(rt); err != nil {
//	    logger.Warn("some plugins failed to load", zap.Error(err))
//	}
package plugin
