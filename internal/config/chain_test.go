package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const chainTOML = `
[[chain]]
name = "default"

[[chain.filterset]]
name = "log"
variables = { level = "debug", filename = "" }

[[chain.filterset]]
name = "trace"
active = false
variables = { key_toggle = "C-A-S-T" }

[[chain]]
name = "quiet"
`

const chainYAML = `
chain:
  - name: default
    filterset:
      - name: log
        variables:
          level: debug
          filename: ""
      - name: trace
        active: false
        variables:
          key_toggle: C-A-S-T
  - name: quiet
`

func TestParseChains(t *testing.T) {
	tests := []struct {
		format Format
		data   string
	}{
		{FormatTOML, chainTOML},
		{FormatYAML, chainYAML},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			cf, err := ParseChains("chains", []byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("ParseChains() error = %v", err)
			}
			if names := cf.Names(); len(names) != 2 || names[0] != "default" || names[1] != "quiet" {
				t.Fatalf("Names() = %v", names)
			}

			c, err := cf.Chain("default")
			if err != nil {
				t.Fatalf("Chain(default) error = %v", err)
			}
			if len(c.FilterSets) != 2 {
				t.Fatalf("FilterSets = %d, want 2", len(c.FilterSets))
			}

			log, trace := c.FilterSets[0], c.FilterSets[1]
			if log.Name != "log" || !log.IsActive() {
				t.Errorf("log entry = %+v", log)
			}
			if trace.Name != "trace" || trace.IsActive() {
				t.Errorf("trace entry = %+v", trace)
			}

			settings := log.Settings()
			if len(settings) != 2 || settings[0] != [2]string{"filename", ""} || settings[1] != [2]string{"level", "debug"} {
				t.Errorf("log Settings() = %v", settings)
			}
			if got := trace.Settings(); len(got) != 1 || got[0] != [2]string{"key_toggle", "C-A-S-T"} {
				t.Errorf("trace Settings() = %v", got)
			}

			quiet, err := cf.Chain("quiet")
			if err != nil || len(quiet.FilterSets) != 0 {
				t.Errorf("Chain(quiet) = %+v, %v", quiet, err)
			}

			if _, err := cf.Chain("missing"); !errors.Is(err, ErrChainNotFound) {
				t.Errorf("Chain(missing) error = %v, want ErrChainNotFound", err)
			}
		})
	}
}

func TestParseChainsErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
		want   error
	}{
		{
			name:   "duplicate filter-set",
			format: FormatTOML,
			data: `[[chain]]
name = "default"
[[chain.filterset]]
name = "log"
[[chain.filterset]]
name = "log"
`,
			want: ErrDuplicateEntry,
		},
		{
			name:   "duplicate chain",
			format: FormatYAML,
			data:   "chain:\n  - name: a\n  - name: a\n",
			want:   ErrDuplicateEntry,
		},
		{
			name:   "unnamed chain",
			format: FormatYAML,
			data:   "chain:\n  - filterset: []\n",
			want:   ErrInvalidChain,
		},
		{
			name:   "unnamed filter-set",
			format: FormatTOML,
			data:   "[[chain]]\nname = \"a\"\n[[chain.filterset]]\nactive = true\n",
			want:   ErrInvalidChain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChains(tt.name, []byte(tt.data), tt.format)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseChains() error = %v, want %v", err, tt.want)
			}
		})
	}

	var perr *ParseError
	if _, err := ParseChains("bad.toml", []byte("[[chain"), FormatTOML); !errors.As(err, &perr) {
		t.Errorf("ParseChains() of malformed TOML error = %v, want *ParseError", err)
	}
	if _, err := ParseChains("bad.toml", []byte("[[chain]]\nname = \"a\"\ncolour = 1\n"), FormatTOML); !errors.As(err, &perr) {
		t.Errorf("ParseChains() with unknown key error = %v, want *ParseError", err)
	}

	cf, err := ParseChains("empty.yaml", nil, FormatYAML)
	if err != nil || len(cf.Chains) != 0 {
		t.Errorf("ParseChains() of empty YAML = %+v, %v", cf, err)
	}
}

func TestLoadChains(t *testing.T) {
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "chains.toml")
	if err := os.WriteFile(tomlPath, []byte(chainTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	if cf, err := LoadChains(tomlPath); err != nil || len(cf.Chains) != 2 {
		t.Errorf("LoadChains(toml) = %v, %v", cf, err)
	}

	ymlPath := filepath.Join(dir, "chains.YML")
	if err := os.WriteFile(ymlPath, []byte(chainYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if cf, err := LoadChains(ymlPath); err != nil || len(cf.Chains) != 2 {
		t.Errorf("LoadChains(yml) = %v, %v", cf, err)
	}

	if _, err := LoadChains(filepath.Join(dir, "chains.json")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("LoadChains(json) error = %v, want ErrUnknownFormat", err)
	}
	if _, err := LoadChains(filepath.Join(dir, "absent.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadChains(absent) error = %v, want not exist", err)
	}
}
