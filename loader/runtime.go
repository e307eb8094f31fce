// Package loader loads Lua game content into scene and item definitions.
// Lua functions in content stay callable at runtime: they become Computed
// descriptions, choice lists, destinations, conditions and entry effects,
// each receiving a snapshot of the player state as a table.
package loader

import (
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/branchquest/types"
)

var errClosed = errors.New("content runtime closed")

// Runtime owns the Lua VM behind computed content. An LState is not safe
// for concurrent use, so every call is serialized.
type Runtime struct {
	mu   sync.Mutex
	L    *lua.LState
	dice types.Dice
}

func newRuntime() *Runtime {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	return &Runtime{L: L}
}

// Close shuts the VM down. Computed content fails with an error afterwards.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.L != nil {
		r.L.Close()
		r.L = nil
	}
	return nil
}

// BindDice makes roll() and weighted() available to content until release
// is called.
func (r *Runtime) BindDice(d types.Dice) (release func()) {
	r.mu.Lock()
	r.dice = d
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.dice = nil
		r.mu.Unlock()
	}
}

// call invokes fn with a state table and hands the single return value to
// conv while the VM is still locked.
func (r *Runtime) call(fn *lua.LFunction, s types.PlayerState, conv func(L *lua.LState, v lua.LValue) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.L == nil {
		return errClosed
	}

	L := r.L
	top := L.GetTop()
	defer L.SetTop(top)

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, stateTable(L, s)); err != nil {
		return err
	}
	return conv(L, L.Get(-1))
}

func (r *Runtime) text(fn *lua.LFunction) types.Lazy[string] {
	return types.Computed(func(s types.PlayerState) (string, error) {
		var out string
		err := r.call(fn, s, func(_ *lua.LState, v lua.LValue) error {
			str, ok := v.(lua.LString)
			if !ok {
				return fmt.Errorf("returned %s, want string", v.Type())
			}
			out = string(str)
			return nil
		})
		return out, err
	})
}

func (r *Runtime) choices(fn *lua.LFunction) types.Lazy[[]types.Choice] {
	return types.Computed(func(s types.PlayerState) ([]types.Choice, error) {
		var out []types.Choice
		err := r.call(fn, s, func(_ *lua.LState, v lua.LValue) error {
			tbl, ok := v.(*lua.LTable)
			if !ok {
				return fmt.Errorf("choices returned %s, want table", v.Type())
			}
			out = compileChoices(r, tbl)
			return nil
		})
		return out, err
	})
}

func (r *Runtime) predicate(fn *lua.LFunction) types.Predicate {
	return func(s types.PlayerState) (bool, error) {
		var out bool
		err := r.call(fn, s, func(_ *lua.LState, v lua.LValue) error {
			out = lua.LVAsBool(v)
			return nil
		})
		return out, err
	}
}

func (r *Runtime) hook(fn *lua.LFunction) types.Hook {
	return func(u types.Updater) error {
		var up update
		err := r.call(fn, u.Snapshot(), func(_ *lua.LState, v lua.LValue) error {
			switch val := v.(type) {
			case *lua.LNilType:
				return nil
			case *lua.LTable:
				up = compileUpdate(val)
				return nil
			default:
				return fmt.Errorf("on_enter returned %s, want table or nil", v.Type())
			}
		})
		if err != nil {
			return err
		}
		return up.apply(u)
	}
}

// stateTable exposes a snapshot of the player record to content.
func stateTable(L *lua.LState, s types.PlayerState) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("scene", lua.LString(s.CurrentScene))
	t.RawSetString("health", lua.LNumber(s.Health))
	t.RawSetString("magic", lua.LNumber(s.Magic))
	t.RawSetString("gold", lua.LNumber(s.Gold))
	t.RawSetString("experience", lua.LNumber(s.Experience))
	t.RawSetString("level", lua.LNumber(s.Level))

	skills := L.NewTable()
	skills.RawSetString(types.SkillCombat, lua.LNumber(s.Skills.Combat))
	skills.RawSetString(types.SkillMagic, lua.LNumber(s.Skills.Magic))
	skills.RawSetString(types.SkillDiplomacy, lua.LNumber(s.Skills.Diplomacy))
	skills.RawSetString(types.SkillStealth, lua.LNumber(s.Skills.Stealth))
	t.RawSetString("skills", skills)

	flags := L.NewTable()
	for k, v := range s.Flags {
		flags.RawSetString(k, lua.LBool(v))
	}
	t.RawSetString("flags", flags)

	inv := L.NewTable()
	held := L.NewTable()
	for _, it := range s.Inventory {
		inv.Append(lua.LString(it.ID))
		held.RawSetString(it.ID, lua.LTrue)
	}
	t.RawSetString("inventory", inv)
	t.RawSetString("items", held)

	hist := L.NewTable()
	for _, h := range s.History {
		hist.Append(lua.LString(h))
	}
	t.RawSetString("history", hist)

	return t
}
