package lua

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/glintercept/internal/api"
	"github.com/dshills/glintercept/internal/filter"
	"github.com/dshills/glintercept/internal/keys"
)

const (
	moduleName     = "glintercept"
	setTypeName    = "glintercept.filterset"
	filterTypeName = "glintercept.filter"
)

// varTypes maps the names scripts use to variable kinds.
var varTypes = map[string]filter.VarType{
	"bool":         filter.VarBool,
	"int":          filter.VarInt,
	"uint":         filter.VarUint,
	"positive int": filter.VarPositiveInt,
	"positive_int": filter.VarPositiveInt,
	"float":        filter.VarFloat,
	"string":       filter.VarString,
	"key":          filter.VarKey,
	"custom":       filter.VarCustom,
}

// openModule builds the glintercept module table.
func (sc *Script) openModule(L *lua.LState) int {
	setMeta := L.NewTypeMetatable(setTypeName)
	L.SetField(setMeta, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"name":                sc.setName,
		"filter":              sc.setFilter,
		"get":                 sc.setGet,
		"active":              sc.setActive,
		"activate_deferred":   sc.setActivateDeferred,
		"deactivate_deferred": sc.setDeactivateDeferred,
		"scratch_get":         sc.setScratchGet,
		"scratch_set":         sc.setScratchSet,
		"scratch_size":        sc.setScratchSize,
		"log":                 sc.setLog,
	}))

	filterMeta := L.NewTypeMetatable(filterTypeName)
	L.SetField(filterMeta, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"name":             sc.filterName,
		"catches":          sc.filterCatches,
		"catches_function": sc.filterCatchesFunction,
		"catches_all":      sc.filterCatchesAll,
	}))

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"filterset":    sc.filterSet,
		"depends":      sc.depends,
		"order":        sc.order,
		"filter_order": sc.filterOrder,
	})
	L.Push(mod)
	return 1
}

// filterSet implements glintercept.filterset{...}.
func (sc *Script) filterSet(L *lua.LState) int {
	desc := L.CheckTable(1)

	name, ok := desc.RawGetString("name").(lua.LString)
	if !ok || name == "" {
		L.ArgError(1, ErrBadDescriptor.Error()+": name is required")
	}

	ud := L.NewUserData()
	L.SetMetatable(ud, L.GetTypeMetatable(setTypeName))

	p := &scriptPlugin{
		sc:         sc,
		ud:         ud,
		load:       optFunction(desc, "load"),
		unload:     optFunction(desc, "unload"),
		activate:   optFunction(desc, "activate"),
		deactivate: optFunction(desc, "deactivate"),
	}

	info := filter.FilterSetInfo{
		Name:           string(name),
		Help:           lua.LVAsString(desc.RawGetString("help")),
		Plugin:         p,
		CallStateSpace: int(lua.LVAsNumber(desc.RawGetString("call_state"))),
	}

	if vars, ok := desc.RawGetString("variables").(*lua.LTable); ok {
		var err error
		vars.ForEach(func(_, v lua.LValue) {
			if err != nil {
				return
			}
			var variable filter.Variable
			variable, err = sc.variable(v, ud)
			info.Variables = append(info.Variables, variable)
		})
		if err != nil {
			L.RaiseError("filter-set %s: %v", name, err)
		}
	}

	set, err := sc.rt.RegisterFilterSet(info)
	if err != nil {
		L.RaiseError("%v", err)
	}
	ud.Value = set
	sc.sets = append(sc.sets, set)
	sc.uds[set] = ud

	L.Push(ud)
	return 1
}

// variable converts one entry of a descriptor's variables list.
func (sc *Script) variable(lv lua.LValue, ud *lua.LUserData) (filter.Variable, error) {
	t, ok := lv.(*lua.LTable)
	if !ok {
		return filter.Variable{}, fmt.Errorf("%w: variable must be a table", ErrBadDescriptor)
	}
	v := filter.Variable{
		Name: lua.LVAsString(t.RawGetString("name")),
		Help: lua.LVAsString(t.RawGetString("help")),
	}

	typeName := lua.LVAsString(t.RawGetString("type"))
	if typeName == "" {
		typeName = "string"
	}
	typ, ok := varTypes[strings.ToLower(typeName)]
	if !ok {
		return filter.Variable{}, fmt.Errorf("%w: variable %s: unknown type %q", ErrBadDescriptor, v.Name, typeName)
	}
	v.Type = typ

	def := t.RawGetString("default")
	switch typ {
	case filter.VarBool:
		p := new(bool)
		*p = lua.LVAsBool(def)
		v.Value = p
	case filter.VarInt, filter.VarUint, filter.VarPositiveInt:
		p := new(int64)
		*p = int64(lua.LVAsNumber(def))
		v.Value = p
	case filter.VarFloat:
		p := new(float64)
		*p = float64(lua.LVAsNumber(def))
		v.Value = p
	case filter.VarString:
		p := new(string)
		if def != lua.LNil {
			*p = lua.LVAsString(def)
		}
		v.Value = p
	case filter.VarKey:
		p := new(keys.Binding)
		if def != lua.LNil {
			b, err := keys.Parse(lua.LVAsString(def))
			if err != nil {
				return filter.Variable{}, fmt.Errorf("variable %s: %w", v.Name, err)
			}
			*p = b
		}
		v.Value = p
	}

	if fn := optFunction(t, "on_set"); fn != nil {
		v.OnSet = func(_ *filter.FilterSet, value any) error {
			if b, ok := value.(keys.Binding); ok {
				value = b.String()
			}
			ret, err := sc.state.CallWith(fn, true, func(L *lua.LState) []lua.LValue {
				return []lua.LValue{ud, toLua(L, value)}
			})
			if err != nil {
				return err
			}
			if len(ret) > 0 && ret[0] == lua.LFalse {
				if len(ret) > 1 && ret[1] != lua.LNil {
					return fmt.Errorf("rejected: %s", ret[1].String())
				}
				return fmt.Errorf("rejected")
			}
			return nil
		}
	}
	return v, nil
}

func (sc *Script) depends(L *lua.LState) int {
	if err := sc.rt.Depends(L.CheckString(1), L.CheckString(2)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (sc *Script) order(L *lua.LState) int {
	if err := sc.rt.OrderFilterSets(L.CheckString(1), L.CheckString(2)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (sc *Script) filterOrder(L *lua.LState) int {
	if err := sc.rt.OrderFilters(L.CheckString(1), L.CheckString(2)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func checkSet(L *lua.LState) (*filter.FilterSet, *lua.LUserData) {
	ud := L.CheckUserData(1)
	set, ok := ud.Value.(*filter.FilterSet)
	if !ok {
		L.ArgError(1, "filter-set expected")
	}
	return set, ud
}

func (sc *Script) setName(L *lua.LState) int {
	set, _ := checkSet(L)
	L.Push(lua.LString(set.Name()))
	return 1
}

func (sc *Script) setActive(L *lua.LState) int {
	set, _ := checkSet(L)
	L.Push(lua.LBool(set.IsActive()))
	return 1
}

func (sc *Script) setActivateDeferred(L *lua.LState) int {
	set, _ := checkSet(L)
	set.ActivateDeferred()
	return 0
}

func (sc *Script) setDeactivateDeferred(L *lua.LState) int {
	set, _ := checkSet(L)
	set.DeactivateDeferred()
	return 0
}

func (sc *Script) setGet(L *lua.LState) int {
	set, _ := checkSet(L)
	name := L.CheckString(2)
	value, ok := set.Value(name)
	if !ok {
		L.RaiseError("filter-set %s: unknown variable %s", set.Name(), name)
	}
	if b, ok := value.(keys.Binding); ok {
		value = b.String()
	}
	L.Push(toLua(L, value))
	return 1
}

func (sc *Script) setFilter(L *lua.LState) int {
	set, _ := checkSet(L)
	f, err := set.NewFilter(L.CheckString(2))
	if err != nil {
		L.RaiseError("%v", err)
	}
	ud := L.NewUserData()
	ud.Value = f
	L.SetMetatable(ud, L.GetTypeMetatable(filterTypeName))
	L.Push(ud)
	return 1
}

// scratchIndex checks a 1-based index into the filter-set's scratch range.
func scratchIndex(L *lua.LState, set *filter.FilterSet) int {
	i := L.CheckInt(2)
	if i < 1 || i > len(set.Scratch()) {
		L.ArgError(2, fmt.Sprintf("scratch index %d out of range [1, %d]", i, len(set.Scratch())))
	}
	return i - 1
}

func (sc *Script) setScratchGet(L *lua.LState) int {
	set, _ := checkSet(L)
	i := scratchIndex(L, set)
	L.Push(lua.LNumber(set.Scratch()[i]))
	return 1
}

func (sc *Script) setScratchSet(L *lua.LState) int {
	set, _ := checkSet(L)
	i := scratchIndex(L, set)
	set.Scratch()[i] = byte(L.CheckInt(3))
	return 0
}

func (sc *Script) setScratchSize(L *lua.LState) int {
	set, _ := checkSet(L)
	L.Push(lua.LNumber(len(set.Scratch())))
	return 1
}

func (sc *Script) setLog(L *lua.LState) int {
	set, _ := checkSet(L)
	level, msg := L.CheckString(2), L.CheckString(3)
	logger := set.Logger()
	switch strings.ToLower(level) {
	case "debug":
		logger.Debug(msg)
	case "warn", "warning":
		logger.Warn(msg)
	case "error":
		logger.Error(msg)
	default:
		logger.Info(msg)
	}
	return 0
}

func checkFilter(L *lua.LState) *filter.Filter {
	ud := L.CheckUserData(1)
	f, ok := ud.Value.(*filter.Filter)
	if !ok {
		L.ArgError(1, "filter expected")
	}
	return f
}

func (sc *Script) filterName(L *lua.LState) int {
	L.Push(lua.LString(checkFilter(L).Name()))
	return 1
}

func (sc *Script) filterCatches(L *lua.LState) int {
	f := checkFilter(L)
	group, inactiveOK, fn := L.CheckString(2), L.ToBool(3), L.CheckFunction(4)
	if err := f.Catches(group, inactiveOK, sc.callback(f, fn)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (sc *Script) filterCatchesFunction(L *lua.LState) int {
	f := checkFilter(L)
	name, inactiveOK, fn := L.CheckString(2), L.ToBool(3), L.CheckFunction(4)
	if err := f.CatchesFunction(name, inactiveOK, sc.callback(f, fn)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (sc *Script) filterCatchesAll(L *lua.LState) int {
	f := checkFilter(L)
	inactiveOK, fn := L.ToBool(2), L.CheckFunction(3)
	if err := f.CatchesAll(inactiveOK, sc.callback(f, fn)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

// callback wraps a Lua function as a catcher callback. Returning false
// stops the chain; a second result becomes the call's return value. Lua
// errors are logged and the chain continues.
func (sc *Script) callback(f *filter.Filter, fn *lua.LFunction) filter.Callback {
	set := f.FilterSet()
	ud := sc.uds[set]
	table := sc.rt.Table()

	return func(call *api.Call, _ filter.CallbackData) bool {
		ret, err := sc.state.CallWith(fn, false, func(L *lua.LState) []lua.LValue {
			t := L.NewTable()
			t.RawSetString("op", lua.LNumber(call.Op))
			t.RawSetString("name", lua.LString(table.Name(call.Op)))
			t.RawSetString("args", toLua(L, call.Args))
			return []lua.LValue{t, ud}
		})
		if err != nil {
			set.Logger().Warn("lua callback failed",
				zap.String("filter", f.Name()),
				zap.Error(err))
			return true
		}
		if len(ret) > 0 && ret[0] == lua.LFalse {
			if len(ret) > 1 && ret[1] != lua.LNil {
				call.Ret = fromLua(ret[1])
			}
			return false
		}
		return true
	}
}

func optFunction(t *lua.LTable, key string) *lua.LFunction {
	fn, _ := t.RawGetString(key).(*lua.LFunction)
	return fn
}
