package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/glintercept/internal/keys"
)

// VarType is the kind of a filter-set variable.
type VarType int

// Variable kinds.
const (
	// VarBool accepts yes/no, true/false, on/off and 1/0. Value is *bool.
	VarBool VarType = iota

	// VarInt accepts any integer. Value is *int64.
	VarInt

	// VarUint accepts integers >= 0. Value is *int64.
	VarUint

	// VarPositiveInt accepts integers > 0. Value is *int64.
	VarPositiveInt

	// VarFloat accepts any float. Value is *float64.
	VarFloat

	// VarString accepts anything. Value is *string.
	VarString

	// VarKey accepts a key binding. Value is *keys.Binding.
	VarKey

	// VarCustom passes the raw string to OnSet, which is required.
	// Value may hold anything; it is not assigned by the runtime.
	VarCustom
)

// String returns the type annotation used in help output.
func (t VarType) String() string {
	switch t {
	case VarBool:
		return "bool"
	case VarInt:
		return "int"
	case VarUint:
		return "uint"
	case VarPositiveInt:
		return "positive int"
	case VarFloat:
		return "float"
	case VarString:
		return "string"
	case VarKey:
		return "key"
	case VarCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Variable describes one configurable setting of a filter-set.
type Variable struct {
	// Name is unique within the filter-set.
	Name string

	// Help is shown by Runtime.Help.
	Help string

	// Type selects how values are parsed.
	Type VarType

	// Value points at the storage the parsed value is written to.
	Value any

	// OnSet, if set, sees the parsed value before it is stored and may
	// reject it by returning an error. For VarCustom it receives the raw
	// string and is responsible for storing it.
	OnSet func(set *FilterSet, value any) error
}

func (v Variable) validate() error {
	if v.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidVariable)
	}
	if v.Type == VarCustom {
		if v.OnSet == nil {
			return fmt.Errorf("%w: %s: custom variable needs OnSet", ErrInvalidVariable, v.Name)
		}
		return nil
	}
	if v.Value == nil {
		if v.OnSet == nil {
			return fmt.Errorf("%w: %s: no storage and no OnSet", ErrInvalidVariable, v.Name)
		}
		return nil
	}

	var ok bool
	switch v.Type {
	case VarBool:
		_, ok = v.Value.(*bool)
	case VarInt, VarUint, VarPositiveInt:
		_, ok = v.Value.(*int64)
	case VarFloat:
		_, ok = v.Value.(*float64)
	case VarString:
		_, ok = v.Value.(*string)
	case VarKey:
		_, ok = v.Value.(*keys.Binding)
	default:
		return fmt.Errorf("%w: %s: unknown type %d", ErrInvalidVariable, v.Name, v.Type)
	}
	if !ok {
		return fmt.Errorf("%w: %s: %T does not hold a %s", ErrInvalidVariable, v.Name, v.Value, v.Type)
	}
	return nil
}

// parse converts raw to the Go value for v's kind.
func (v Variable) parse(raw string) (any, error) {
	switch v.Type {
	case VarBool:
		return parseBool(raw)
	case VarInt, VarUint, VarPositiveInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 0, 64)
		if err != nil {
			return nil, errors.New("expected an integer")
		}
		if v.Type == VarUint && n < 0 {
			return nil, errors.New("expected a non-negative integer")
		}
		if v.Type == VarPositiveInt && n <= 0 {
			return nil, errors.New("expected a positive integer")
		}
		return n, nil
	case VarFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, errors.New("expected a number")
		}
		return f, nil
	case VarKey:
		return keys.Parse(raw)
	default:
		return raw, nil
	}
}

// store writes a parsed value through v.Value.
func (v Variable) store(value any) {
	switch p := v.Value.(type) {
	case *bool:
		*p = value.(bool)
	case *int64:
		*p = value.(int64)
	case *float64:
		*p = value.(float64)
	case *string:
		*p = value.(string)
	case *keys.Binding:
		*p = value.(keys.Binding)
	}
}

// current dereferences v.Value.
func (v Variable) current() any {
	switch p := v.Value.(type) {
	case *bool:
		return *p
	case *int64:
		return *p
	case *float64:
		return *p
	case *string:
		return *p
	case *keys.Binding:
		return *p
	default:
		return v.Value
	}
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "on", "1":
		return true, nil
	case "no", "false", "off", "0":
		return false, nil
	default:
		return false, errors.New("expected yes/no, true/false, on/off or 1/0")
	}
}

// Variables returns the filter-set's variable descriptors.
func (s *FilterSet) Variables() []Variable {
	out := make([]Variable, len(s.variables))
	copy(out, s.variables)
	return out
}

// Value returns the current value of the named variable. Custom variables
// return whatever their Value field holds.
func (s *FilterSet) Value(name string) (any, bool) {
	i, ok := s.varIndex[name]
	if !ok {
		return nil, false
	}
	return s.variables[i].current(), true
}

// Configure sets a filter-set variable from its string form. It takes the
// dispatch lock, so it is safe while calls are in flight but must not be
// called from a callback.
func (rt *Runtime) Configure(set, variable, value string) error {
	s, ok := rt.byName[set]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFilterSetNotFound, set)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	return s.configure(variable, value)
}

func (s *FilterSet) configure(name, raw string) error {
	verr := &VariableError{FilterSet: s.name, Variable: name, Value: raw}

	i, ok := s.varIndex[name]
	if !ok {
		verr.Err = ErrUnknownVariable
		return verr
	}
	v := s.variables[i]

	value, err := v.parse(raw)
	if err != nil {
		verr.Err = fmt.Errorf("%w: %w", ErrInvalidValue, err)
		return verr
	}
	if v.OnSet != nil {
		if err := v.OnSet(s, value); err != nil {
			verr.Err = fmt.Errorf("%w: %w", ErrInvalidValue, err)
			return verr
		}
	}
	if v.Type != VarCustom {
		v.store(value)
	}
	return nil
}
