package loader

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/branchquest/types"
)

// Marker key set on tables built by Update{...}.
const updateMarker = "__update"

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(r *Runtime, coll *collector) {
	L := r.L
	registerConstructors(L, coll)
	registerRequirementHelpers(L)
	registerDice(r)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", start = "...", ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Scene "id" { ... }, curried.
	L.SetGlobal("Scene", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.scenes = append(coll.scenes, rawScene{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// Item "id" { ... }, curried.
	L.SetGlobal("Item", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.items = append(coll.items, rawItem{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// On("event_type", { requires = {...}, update = Update{...} })
	L.SetGlobal("On", L.NewFunction(func(L *lua.LState) int {
		eventType := L.CheckString(1)
		coll.handlers = append(coll.handlers, rawHandler{eventType: eventType, table: L.CheckTable(2)})
		return 0
	}))

	// Choice { ... } is a pass-through for readability.
	L.SetGlobal("Choice", L.NewFunction(func(L *lua.LState) int {
		L.Push(L.CheckTable(1))
		return 1
	}))

	// Update { gold = 5, flags = {...}, items = {...}, use = {...} }
	L.SetGlobal("Update", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString(updateMarker, lua.LTrue)
		L.Push(tbl)
		return 1
	}))
}

func clause(L *lua.LState, kind string, fields ...any) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("type", lua.LString(kind))
	for i := 0; i+1 < len(fields); i += 2 {
		key := fields[i].(string)
		switch v := fields[i+1].(type) {
		case string:
			tbl.RawSetString(key, lua.LString(v))
		case lua.LValue:
			tbl.RawSetString(key, v)
		}
	}
	return tbl
}

func registerRequirementHelpers(L *lua.LState) {
	// GoldAtLeast(n)
	L.SetGlobal("GoldAtLeast", L.NewFunction(func(L *lua.LState) int {
		L.Push(clause(L, types.ReqGoldAtLeast, "amount", L.CheckNumber(1)))
		return 1
	}))

	// HasItem("id")
	L.SetGlobal("HasItem", L.NewFunction(func(L *lua.LState) int {
		L.Push(clause(L, types.ReqHasItem, "item", L.CheckString(1)))
		return 1
	}))

	// FlagSet("flag")
	L.SetGlobal("FlagSet", L.NewFunction(func(L *lua.LState) int {
		L.Push(clause(L, types.ReqFlagSet, "flag", L.CheckString(1)))
		return 1
	}))

	// FlagNot("flag")
	L.SetGlobal("FlagNot", L.NewFunction(func(L *lua.LState) int {
		L.Push(clause(L, types.ReqFlagNot, "flag", L.CheckString(1)))
		return 1
	}))

	// SkillAtLeast("combat", 3)
	L.SetGlobal("SkillAtLeast", L.NewFunction(func(L *lua.LState) int {
		L.Push(clause(L, types.ReqSkillAtLeast, "skill", L.CheckString(1), "amount", L.CheckNumber(2)))
		return 1
	}))

	// Custom(function(state) return ... end)
	L.SetGlobal("Custom", L.NewFunction(func(L *lua.LState) int {
		L.Push(clause(L, types.ReqCustom, "fn", L.CheckFunction(1)))
		return 1
	}))
}

// registerDice exposes roll(sides) and weighted({w1, w2, ...}). Both are
// only usable while the engine has dice bound, that is while a computed
// destination is evaluated.
func registerDice(r *Runtime) {
	L := r.L

	L.SetGlobal("roll", L.NewFunction(func(L *lua.LState) int {
		sides := L.CheckInt(1)
		if r.dice == nil {
			L.RaiseError("roll() is only available inside a choice's next function")
			return 0
		}
		L.Push(lua.LNumber(r.dice.Roll(sides)))
		return 1
	}))

	// weighted returns a 1-based index.
	L.SetGlobal("weighted", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		if r.dice == nil {
			L.RaiseError("weighted() is only available inside a choice's next function")
			return 0
		}
		weights := make([]int, 0, tbl.MaxN())
		for i := 1; i <= tbl.MaxN(); i++ {
			n, _ := tbl.RawGetInt(i).(lua.LNumber)
			weights = append(weights, int(n))
		}
		if len(weights) == 0 {
			L.ArgError(1, "weights must not be empty")
			return 0
		}
		L.Push(lua.LNumber(r.dice.WeightedSelect(weights) + 1))
		return 1
	}))
}
