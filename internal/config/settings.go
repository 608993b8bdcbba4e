package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "GLINTERCEPT_"

// DefaultChain is the chain selected when none is configured.
const DefaultChain = "default"

// Settings configures the host.
type Settings struct {
	LogLevel  string `koanf:"log_level"`
	LogFile   string `koanf:"log_file"`
	PluginDir string `koanf:"plugin_dir"`
	ChainFile string `koanf:"chain_file"`
	Chain     string `koanf:"chain"`
	Watch     bool   `koanf:"watch"`
}

// LoadSettings reads settings from the YAML file at path, if path is set
// and the file exists, and then from the environment.
func LoadSettings(path string) (*Settings, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// A missing file is fine; the environment may carry everything
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, err
	}

	if !k.Exists("log_level") {
		k.Set("log_level", "info")
	}
	if !k.Exists("chain") {
		k.Set("chain", DefaultChain)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, err
	}
	return &s, nil
}
