package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a chain file syntax.
type Format int

// Chain file formats.
const (
	FormatTOML Format = iota
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// ChainFile is the parsed content of a chain file.
type ChainFile struct {
	Chains []Chain `toml:"chain" yaml:"chain"`
}

// Chain is a named list of filter-sets to add to a runtime.
type Chain struct {
	Name       string  `toml:"name" yaml:"name"`
	FilterSets []Entry `toml:"filterset" yaml:"filterset"`
}

// Entry configures one filter-set of a chain.
type Entry struct {
	Name string `toml:"name" yaml:"name"`

	// Active defaults to true.
	Active *bool `toml:"active" yaml:"active"`

	// Variables are applied with Runtime.Configure. Values are converted
	// to their string form first.
	Variables map[string]any `toml:"variables" yaml:"variables"`
}

// IsActive reports whether the entry should be active.
func (e Entry) IsActive() bool {
	return e.Active == nil || *e.Active
}

// Settings returns the entry's variables as sorted name/value pairs.
func (e Entry) Settings() [][2]string {
	names := make([]string, 0, len(e.Variables))
	for name := range e.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([][2]string, len(names))
	for i, name := range names {
		out[i] = [2]string{name, fmt.Sprint(e.Variables[name])}
	}
	return out
}

// LoadChains reads and validates the chain file at path.
func LoadChains(path string) (*ChainFile, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chain file %s: %w", path, err)
	}
	return ParseChains(path, data, format)
}

// ParseChains parses and validates chain file data. source names the data
// in errors.
func ParseChains(source string, data []byte, format Format) (*ChainFile, error) {
	var cf ChainFile
	var err error
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cf)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cf)
		if err != nil && len(bytes.TrimSpace(data)) == 0 {
			err = nil
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}

	if err := cf.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &cf, nil
}

func (cf *ChainFile) validate() error {
	chains := make(map[string]bool, len(cf.Chains))
	for _, c := range cf.Chains {
		if c.Name == "" {
			return fmt.Errorf("%w: chain without a name", ErrInvalidChain)
		}
		if chains[c.Name] {
			return fmt.Errorf("%w: chain %s", ErrDuplicateEntry, c.Name)
		}
		chains[c.Name] = true

		seen := make(map[string]bool, len(c.FilterSets))
		for _, e := range c.FilterSets {
			if e.Name == "" {
				return fmt.Errorf("%w: chain %s: filter-set without a name", ErrInvalidChain, c.Name)
			}
			if seen[e.Name] {
				return fmt.Errorf("%w: chain %s: filter-set %s", ErrDuplicateEntry, c.Name, e.Name)
			}
			seen[e.Name] = true
		}
	}
	return nil
}

// Chain returns the named chain.
func (cf *ChainFile) Chain(name string) (*Chain, error) {
	for i := range cf.Chains {
		if cf.Chains[i].Name == name {
			return &cf.Chains[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrChainNotFound, name)
}

// Names returns the chain names in file order.
func (cf *ChainFile) Names() []string {
	names := make([]string, len(cf.Chains))
	for i, c := range cf.Chains {
		names[i] = c.Name
	}
	return names
}
