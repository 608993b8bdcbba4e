// Package config loads host settings and filter-set chains.
//
// Host settings come from an optional YAML file overlaid by GLINTERCEPT_*
// environment variables:
//
//	log_level: debug
//	log_file: /tmp/glintercept.log
//	plugin_dir: /opt/glintercept/plugins
//	chain_file: chains.toml
//	chain: capture
//	watch: true
//
// A chain file lists named chains of filter-sets, each with an active
// flag and variable settings. TOML and YAML are accepted:
//
//	[[chain]]
//	name = "capture"
//
//	[[chain.filterset]]
//	name = "trace"
//	active = false
//	variables = { key_toggle = "C-A-S-T" }
//
// Apply feeds a chain to a runtime before it is finalized. A Watcher
// re-applies the active flags and variables whenever the file changes.
package config
