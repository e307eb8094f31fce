package state

import (
	"errors"
	"testing"

	"github.com/nathoo/branchquest/types"
)

func testDefs() *Defs {
	defs := NewDefs(types.GameDef{Title: "Test Game", Start: "start"})
	defs.AddScene(types.Scene{ID: "start", Title: "Village Square", Description: types.Literal("A square.")})
	defs.AddScene(types.Scene{ID: "forest", Title: "Dark Forest", Description: types.Literal("Trees.")})
	defs.AddItem(types.Item{ID: "sword", Name: "Iron Sword", Type: "weapon"})
	return defs
}

func TestNewState_InitialValues(t *testing.T) {
	s := NewState(testDefs())

	if s.CurrentScene != "start" {
		t.Errorf("expected start scene, got %q", s.CurrentScene)
	}
	if s.Health != 100 || s.Magic != 50 || s.Gold != 0 || s.Experience != 0 || s.Level != 1 {
		t.Errorf("unexpected resources: %+v", s)
	}
	if s.Skills != (types.Skills{Combat: 1, Magic: 1, Diplomacy: 1, Stealth: 1}) {
		t.Errorf("unexpected skills: %+v", s.Skills)
	}
	if len(s.Inventory) != 0 || len(s.History) != 0 {
		t.Error("expected empty inventory and history")
	}
}

func TestDefs_DefaultItems(t *testing.T) {
	defs := testDefs()
	hp, ok := defs.Item("healingPotion")
	if !ok || hp.OnUse == nil || hp.OnUse.Health != 50 {
		t.Errorf("expected default healing potion, got %+v", hp)
	}
	mp, ok := defs.Item("magicPotion")
	if !ok || mp.OnUse == nil || mp.OnUse.Magic != 30 {
		t.Errorf("expected default magic potion, got %+v", mp)
	}
}

func TestDefs_LastRegisteredWins(t *testing.T) {
	defs := testDefs()
	replaced := defs.AddScene(types.Scene{ID: "forest", Title: "Bright Forest"})
	if !replaced {
		t.Error("expected replacement to be reported")
	}
	sc, _ := defs.Scene("forest")
	if sc.Title != "Bright Forest" {
		t.Errorf("expected later registration to win, got %q", sc.Title)
	}
}

func TestDefs_SceneIDsSorted(t *testing.T) {
	ids := testDefs().SceneIDs()
	if len(ids) != 2 || ids[0] != "forest" || ids[1] != "start" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestDefs_FallbackDefault(t *testing.T) {
	defs := &Defs{}
	if defs.Fallback() != "start" {
		t.Errorf("expected start, got %q", defs.Fallback())
	}
}

func TestDefs_FallbackRecovery(t *testing.T) {
	defs := testDefs()
	defs.Recovery = "forest"
	if defs.Fallback() != "forest" {
		t.Errorf("expected forest, got %q", defs.Fallback())
	}
	if defs.Game.Start != "start" {
		t.Errorf("start scene changed to %q", defs.Game.Start)
	}
}

func TestSkillLevel(t *testing.T) {
	s := NewState(testDefs())
	s.Skills.Stealth = 4
	if SkillLevel(s, "stealth") != 4 {
		t.Error("expected stealth 4")
	}
	if SkillLevel(s, "juggling") != 0 {
		t.Error("expected unknown skill to be 0")
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := NewState(testDefs())
	s.Flags["a"] = true
	c := Clone(s)
	c.Flags["a"] = false
	c.History = append(c.History, "x")
	if !s.Flags["a"] || len(s.History) != 0 {
		t.Error("clone shares storage with original")
	}
}

func TestStore_ApplyUpdate(t *testing.T) {
	st := NewStore(testDefs())

	if err := st.ApplyUpdate(types.Delta{Gold: 50}); err != nil {
		t.Fatalf("ApplyUpdate: %v", err)
	}
	if st.Stats().Gold != 50 {
		t.Errorf("gold = %d, want 50", st.Stats().Gold)
	}
	_ = st.ApplyUpdate(types.Delta{Gold: -70})
	if st.Stats().Gold != 0 {
		t.Errorf("gold = %d, want 0", st.Stats().Gold)
	}
}

func TestStore_ItemsAndUse(t *testing.T) {
	st := NewStore(testDefs())
	_ = st.ApplyUpdate(types.Delta{Health: -60, Items: []string{"healingPotion", "sword"}})

	if !st.HasItem("sword") || !st.HasItem("healingPotion") {
		t.Fatalf("expected items, got %v", st.Inventory())
	}

	used, err := st.UseItem("healingPotion")
	if err != nil || !used {
		t.Fatalf("UseItem = %v, %v", used, err)
	}
	if st.Stats().Health != 90 {
		t.Errorf("health = %d, want 90", st.Stats().Health)
	}

	used, err = st.UseItem("dragonEgg")
	if err != nil || used {
		t.Errorf("expected no-op for unknown item, got %v, %v", used, err)
	}
}

func TestStore_Reset(t *testing.T) {
	st := NewStore(testDefs())
	_ = st.ApplyUpdate(types.Delta{Gold: 10, Items: []string{"sword"}})
	_ = st.Transit(Transit{HistoryEntry: "Village Square: Go", SceneID: "forest"})

	st.Reset()

	s := st.Snapshot()
	if s.Gold != 0 || len(s.Inventory) != 0 || len(s.History) != 0 || s.CurrentScene != "start" {
		t.Errorf("expected fresh state, got %+v", s)
	}
}

func TestStore_Transit(t *testing.T) {
	st := NewStore(testDefs())
	if err := st.Transit(Transit{HistoryEntry: "Village Square: Enter the forest", SceneID: "forest", RNGPosition: 3}); err != nil {
		t.Fatal(err)
	}
	s := st.Snapshot()
	if s.CurrentScene != "forest" {
		t.Errorf("scene = %q", s.CurrentScene)
	}
	if len(s.History) != 1 || s.History[0] != "Village Square: Enter the forest" {
		t.Errorf("history = %v", s.History)
	}
	if s.RNGPosition != 3 {
		t.Errorf("rng position = %d", s.RNGPosition)
	}
	evts := st.DrainEvents()
	if len(evts) != 1 || evts[0].Type != "scene_entered" {
		t.Errorf("expected scene_entered, got %v", evts)
	}
	if len(st.DrainEvents()) != 0 {
		t.Error("expected drain to clear events")
	}
}

func TestStore_SubscribersNotified(t *testing.T) {
	st := NewStore(testDefs())
	var got []int
	st.Subscribe(func(s types.PlayerState) { got = append(got, s.Gold) })

	_ = st.ApplyUpdate(types.Delta{Gold: 5})
	_ = st.ApplyUpdate(types.Delta{Gold: 5})
	st.Reset()

	if len(got) != 3 || got[0] != 5 || got[1] != 10 || got[2] != 0 {
		t.Errorf("unexpected notifications %v", got)
	}
}

func TestStore_SnapshotIsolation(t *testing.T) {
	st := NewStore(testDefs())
	snap := st.Snapshot()
	snap.Flags["cheat"] = true
	snap.Gold = 999
	if st.Snapshot().Flags["cheat"] || st.Stats().Gold != 0 {
		t.Error("mutating snapshot leaked into store")
	}
}

func TestStore_Restore_Normalizes(t *testing.T) {
	st := NewStore(testDefs())
	st.Restore(types.PlayerState{Health: 500, Gold: -3})

	s := st.Snapshot()
	if s.Health != 100 || s.Gold != 0 || s.Level != 1 {
		t.Errorf("expected clamped values, got %+v", s)
	}
	if s.CurrentScene != "start" {
		t.Errorf("expected fallback scene, got %q", s.CurrentScene)
	}
}

func TestStore_ZeroValueIsContractViolation(t *testing.T) {
	var st Store

	err := st.ApplyUpdate(types.Delta{Gold: 1})
	if !IsContractError(err) || !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected contract error, got %v", err)
	}
	if _, err := st.UseItem("healingPotion"); !IsContractError(err) {
		t.Errorf("expected contract error from UseItem, got %v", err)
	}
	if st.HasItem("healingPotion") {
		t.Error("expected HasItem fallback to false")
	}
}
