package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/glintercept/internal/api"
	"github.com/dshills/glintercept/internal/filter"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func luaSet(name string) string {
	return `glintercept.filterset{ name = "` + name + `" }`
}

func TestNewLoaderWithPaths(t *testing.T) {
	loader := NewLoader(WithPaths("/custom/path1", "/custom/path2"))
	loader.AddPath("/added")

	paths := loader.Paths()
	want := []string{"/custom/path1", "/custom/path2", "/added"}
	if len(paths) != len(want) {
		t.Fatalf("Paths() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Paths()[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestDefaultPluginPaths(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	t.Setenv(PathEnv, a+string(os.PathListSeparator)+b)

	paths := DefaultPluginPaths()
	if len(paths) != 2 || paths[0] != a || paths[1] != b {
		t.Errorf("DefaultPluginPaths() = %v, want [%s %s]", paths, a, b)
	}

	t.Setenv(PathEnv, "")
	if len(DefaultPluginPaths()) == 0 {
		t.Error("DefaultPluginPaths() should fall back to the default paths")
	}
}

func TestLoaderDiscover(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()

	writeFile(t, filepath.Join(first, "drawcount.lua"), luaSet("drawcount"))
	writeFile(t, filepath.Join(first, "capture", "init.lua"), luaSet("capture"))
	writeFile(t, filepath.Join(first, "errorcheck.so"), "not an object")
	writeFile(t, filepath.Join(first, "README.md"), "ignored")
	if err := os.MkdirAll(filepath.Join(first, "broken"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(second, "drawcount.lua"), luaSet("shadowed"))
	writeFile(t, filepath.Join(second, "zeta.lua"), luaSet("zeta"))

	loader := NewLoader(WithPaths(first, second, filepath.Join(first, "missing")))
	plugins, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	tests := []struct {
		name string
		kind Kind
		path string
		err  error
	}{
		{"broken", KindLua, filepath.Join(first, "broken"), ErrNoEntryPoint},
		{"capture", KindLua, filepath.Join(first, "capture", "init.lua"), nil},
		{"drawcount", KindLua, filepath.Join(first, "drawcount.lua"), nil},
		{"errorcheck", KindGo, filepath.Join(first, "errorcheck.so"), nil},
		{"zeta", KindLua, filepath.Join(second, "zeta.lua"), nil},
	}
	if len(plugins) != len(tests) {
		t.Fatalf("Discover() found %d plugins, want %d", len(plugins), len(tests))
	}
	for i, tt := range tests {
		p := plugins[i]
		if p.Name != tt.name || p.Kind != tt.kind || p.Path != tt.path || !errors.Is(p.Error, tt.err) {
			t.Errorf("plugin %d = {%s %s %s %v}, want {%s %s %s %v}",
				i, p.Name, p.Kind, p.Path, p.Error, tt.name, tt.kind, tt.path, tt.err)
		}
	}

	if loader.Count() != len(tests) {
		t.Errorf("Count() = %d, want %d", loader.Count(), len(tests))
	}
	if errored := loader.Errors(); len(errored) != 1 || errored[0].Name != "broken" {
		t.Errorf("Errors() = %v, want [broken]", errored)
	}
	if names := loader.ListNames(); len(names) != len(tests) || names[0] != "broken" {
		t.Errorf("ListNames() = %v", names)
	}
}

func TestLoaderFindPlugin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "drawcount.lua"), luaSet("drawcount"))
	writeFile(t, filepath.Join(dir, "capture", "init.lua"), luaSet("capture"))

	loader := NewLoader(WithPaths(dir))

	info, err := loader.FindPlugin("drawcount")
	if err != nil {
		t.Fatalf("FindPlugin(drawcount) error = %v", err)
	}
	if info.Kind != KindLua || info.Path != filepath.Join(dir, "drawcount.lua") {
		t.Errorf("FindPlugin(drawcount) = %+v", info)
	}

	info, err = loader.FindPlugin("capture")
	if err != nil || info.Path != filepath.Join(dir, "capture", "init.lua") {
		t.Errorf("FindPlugin(capture) = %+v, %v", info, err)
	}

	if _, ok := loader.Get("capture"); !ok {
		t.Error("FindPlugin should cache the result")
	}

	if _, err := loader.FindPlugin("nonexistent"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("FindPlugin(nonexistent) error = %v, want ErrPluginNotFound", err)
	}
}

func TestLoaderLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "drawcount.lua"), luaSet("drawcount"))
	writeFile(t, filepath.Join(dir, "capture", "init.lua"), luaSet("capture"))
	writeFile(t, filepath.Join(dir, "syntax.lua"), "glintercept.filterset{")
	writeFile(t, filepath.Join(dir, "native.so"), "not an object")

	rt := filter.New(api.GL(), filter.WithBootstrap(""))
	loader := NewLoader(WithPaths(dir))

	err := loader.LoadAll(rt)
	if err == nil {
		t.Fatal("LoadAll() should report the failing plugins")
	}

	for _, name := range []string{"drawcount", "capture"} {
		set, ok := rt.FilterSet(name)
		if !ok {
			t.Errorf("filter-set %s not registered", name)
			continue
		}
		info, _ := loader.Get(name)
		if info.State != StateLoaded {
			t.Errorf("plugin %s state = %s, want loaded", name, info.State)
		}
		if set.Module() != info.Module {
			t.Errorf("filter-set %s module = %v, want %v", name, set.Module(), info.Module)
		}
	}

	for _, name := range []string{"syntax", "native"} {
		info, _ := loader.Get(name)
		if info.State != StateError || info.Error == nil {
			t.Errorf("plugin %s = %s %v, want error state", name, info.State, info.Error)
		}
	}

	info, _ := loader.Get("drawcount")
	if err := loader.Load(rt, info); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("second Load() error = %v, want ErrAlreadyLoaded", err)
	}

	if err := rt.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestEntryFunc(t *testing.T) {
	var called bool
	fn := EntryFunc(func(*filter.Runtime) error {
		called = true
		return nil
	})
	var nilFn EntryFunc

	tests := []struct {
		name string
		sym  any
		ok   bool
	}{
		{"func", fn, true},
		{"pointer", &fn, true},
		{"nil pointer target", &nilFn, false},
		{"wrong type", func() {}, false},
		{"int", new(int), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := entryFunc(tt.sym)
			if tt.ok {
				if err != nil {
					t.Fatalf("entryFunc() error = %v", err)
				}
				called = false
				if err := got(nil); err != nil || !called {
					t.Error("entryFunc() returned a different function")
				}
				return
			}
			if !errors.Is(err, ErrBadEntryPoint) {
				t.Errorf("entryFunc() error = %v, want ErrBadEntryPoint", err)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDiscovered, "discovered"},
		{StateLoaded, "loaded"},
		{StateError, "error"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
	if KindGo.String() != "go" || KindLua.String() != "lua" {
		t.Error("Kind.String() mismatch")
	}
}
