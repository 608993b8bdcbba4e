package plugin

import "errors"

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin cannot be located.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNoEntryPoint is returned when a plugin directory has no init.lua.
	ErrNoEntryPoint = errors.New("plugin has no entry point (init.lua)")

	// ErrBadEntryPoint is returned when a Go plugin's entry point symbol is
	// missing or has the wrong type.
	ErrBadEntryPoint = errors.New("plugin entry point has wrong type")

	// ErrAlreadyLoaded is returned when attempting to load a plugin twice.
	ErrAlreadyLoaded = errors.New("plugin is already loaded")
)
