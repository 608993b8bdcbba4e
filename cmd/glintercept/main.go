// Package main is the entry point for the glintercept replay host.
//
// glintercept loads filter-set plugins, applies a chain and replays
// intercepted calls read from standard input through the dispatcher.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/dshills/glintercept/internal/api"
	"github.com/dshills/glintercept/internal/config"
	"github.com/dshills/glintercept/internal/filter"
	"github.com/dshills/glintercept/internal/filters"
	"github.com/dshills/glintercept/internal/logging"
	"github.com/dshills/glintercept/internal/plugin"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	ConfigPath string
	PluginDir  string
	ChainFile  string
	Chain      string
	LogLevel   string
	LogFile    string
	List       bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	settings, err := config.LoadSettings(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load settings: %v\n", err)
		return 1
	}
	opts.merge(settings)

	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logger, closeLog, err := logging.New(logging.Config{Level: level, File: settings.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
		return 1
	}
	defer closeLog()
	defer func() { _ = logger.Sync() }()

	rt := filter.New(api.GL(), filter.WithLogger(logger))
	logger = rt.Logger()

	builtins, err := filters.Register(rt, os.Stderr)
	if err != nil {
		logger.Error("registering built-in filter-sets", zap.Error(err))
		return 1
	}

	loaderOpts := []plugin.LoaderOption{plugin.WithLogger(logger)}
	if settings.PluginDir != "" {
		loaderOpts = append(loaderOpts, plugin.WithPaths(filepath.SplitList(settings.PluginDir)...))
	}
	loader := plugin.NewLoader(loaderOpts...)
	if err := loader.LoadAll(rt); err != nil {
		logger.Warn("some plugins failed to load", zap.Error(err))
	}

	if opts.List {
		if err := rt.Help(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	// Ensure cleanup on all exit paths
	defer func() {
		if err := rt.Shutdown(); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	if err := applyChain(rt, settings); err != nil {
		logger.Error("applying chain", zap.Error(err))
		return 1
	}
	if err := rt.Finalize(); err != nil {
		logger.Error("finalizing filter-sets", zap.Error(err))
		return 1
	}

	if settings.Watch && settings.ChainFile != "" {
		w, err := config.Watch(rt, settings.ChainFile, settings.Chain, config.WithWatchLogger(logger))
		if err != nil {
			logger.Warn("chain file will not be watched", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := replay(ctx, rt, builtins, os.Stdin)
	logger.Info("replay finished",
		zap.Int("calls", stats.Calls),
		zap.Int("bypassed", stats.Bypassed),
		zap.Int("suppressed", stats.Suppressed),
		zap.Int("skipped", stats.Skipped))
	if err != nil && ctx.Err() == nil {
		logger.Error("replay", zap.Error(err))
		return 1
	}
	return 0
}

// applyChain adds the configured chain to rt. Without a chain file the
// pass-through and trace filter-sets are added, trace inactive.
func applyChain(rt *filter.Runtime, settings *config.Settings) error {
	if settings.ChainFile == "" {
		if err := rt.Add(rt.PassThrough(), true); err != nil {
			return err
		}
		return rt.Add(filters.TraceName, false)
	}

	cf, err := config.LoadChains(settings.ChainFile)
	if err != nil {
		return err
	}
	c, err := cf.Chain(settings.Chain)
	if err != nil {
		return err
	}
	return config.Apply(rt, c)
}

// merge lets flags that were set override the loaded settings.
func (o options) merge(s *config.Settings) {
	if o.PluginDir != "" {
		s.PluginDir = o.PluginDir
	}
	if o.ChainFile != "" {
		s.ChainFile = o.ChainFile
	}
	if o.Chain != "" {
		s.Chain = o.Chain
	}
	if o.LogLevel != "" {
		s.LogLevel = o.LogLevel
	}
	if o.LogFile != "" {
		s.LogFile = o.LogFile
	}
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to settings file (YAML)")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to settings file (shorthand)")
	flag.StringVar(&opts.PluginDir, "plugins", "", "Plugin search path list")
	flag.StringVar(&opts.ChainFile, "chain-file", "", "Chain file (TOML or YAML)")
	flag.StringVar(&opts.Chain, "chain", "", "Chain to apply from the chain file")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.LogFile, "log-file", "", "Write the host log to a file")
	flag.BoolVar(&opts.List, "list", false, "List filter-sets and their variables, then exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "glintercept - call interception host\n\n")
		fmt.Fprintf(os.Stderr, "Usage: glintercept [options] < calls.txt\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nInput lines:\n")
		fmt.Fprintf(os.Stderr, "  glDrawArrays 4 0 3           Dispatch a call\n")
		fmt.Fprintf(os.Stderr, "  key C-A-S-T                  Send a key press\n")
		fmt.Fprintf(os.Stderr, "  activate trace               Activate a filter-set\n")
		fmt.Fprintf(os.Stderr, "  set trace key_toggle C-F5    Set a variable\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("glintercept %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	return opts
}
