// Package lua runs filter-sets written in Lua.
//
// A script is one plugin module. It runs once, top to bottom, when the
// plugin is discovered, and registers filter-sets through the glintercept
// module:
//
//	local gl = require("glintercept")
//
//	local counter = gl.filterset{
//	    name = "drawcount",
//	    help = "counts draw calls",
//	    variables = {
//	        { name = "verbose", type = "bool", default = false },
//	    },
//	    load = function(set)
//	        local draws = 0
//	        set:filter("drawcount"):catches("glDrawArrays", false, function(call)
//	            draws = draws + 1
//	            if set:get("verbose") then
//	                set:log("info", call.name .. " #" .. draws)
//	            end
//	        end)
//	    end,
//	}
//	gl.filter_order("invoke", "drawcount")
//
// Callbacks receive a call table {op, name, args} and the filter-set.
// Returning false suppresses the rest of the chain; any other result lets
// it continue.
package lua

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds how long a script's top-level code and its
// lifecycle hooks may run.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps a sandboxed gopher-lua state.
//
// gopher-lua's LState is not goroutine-safe. Every entry into Lua goes
// through the State mutex; Go functions called back from Lua must not
// re-enter the State.
type State struct {
	L *lua.LState

	mu      sync.Mutex
	timeout time.Duration
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the timeout for top-level code and hooks.
// Zero disables it.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.timeout = d
	}
}

// NewState creates a sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{timeout: DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)
	return s
}

// openSafeLibraries opens the libraries scripts may use. io, os and debug
// are not opened, and require only resolves preloaded modules.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
		L.SetField(pkg, "path", lua.LString(""))
		L.SetField(pkg, "cpath", lua.LString(""))
	}
}

// DoFile executes a Lua file under the execution timeout.
func (s *State) DoFile(path string) error {
	return s.run(true, func() error { return s.L.DoFile(path) })
}

// DoString executes Lua source under the execution timeout.
func (s *State) DoString(code string) error {
	return s.run(true, func() error { return s.L.DoString(code) })
}

// Call calls fn with args and returns its results. If timed is set the
// execution timeout applies.
func (s *State) Call(fn *lua.LFunction, timed bool, args ...lua.LValue) ([]lua.LValue, error) {
	return s.CallWith(fn, timed, func(*lua.LState) []lua.LValue { return args })
}

// CallWith is like Call but builds the arguments while holding the State
// mutex, for arguments that allocate Lua values.
func (s *State) CallWith(fn *lua.LFunction, timed bool, build func(L *lua.LState) []lua.LValue) ([]lua.LValue, error) {
	var results []lua.LValue
	err := s.run(timed, func() error {
		args := build(s.L)
		top := s.L.GetTop()
		s.L.Push(fn)
		for _, arg := range args {
			s.L.Push(arg)
		}
		if err := s.L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}
		n := s.L.GetTop() - top
		results = make([]lua.LValue, n)
		for i := 0; i < n; i++ {
			results[i] = s.L.Get(top + i + 1)
		}
		s.L.Pop(n)
		return nil
	})
	return results, err
}

// run executes fn under the State mutex with panic recovery.
func (s *State) run(timed bool, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	if timed && s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// PreloadModule makes a module available to require and as a global.
func (s *State) PreloadModule(name string, loader lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.PreloadModule(name, loader)
	s.L.Push(s.L.NewFunction(loader))
	s.L.Call(0, 1)
	s.L.SetGlobal(name, s.L.Get(-1))
	s.L.Pop(1)
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
