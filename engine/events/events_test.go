package events

import (
	"errors"
	"testing"

	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/types"
)

func testDefs() *state.Defs {
	defs := state.NewDefs(types.GameDef{Start: "start"})
	defs.Handlers = []types.EventHandler{
		{
			EventType: LevelUp,
			Update:    types.Delta{Gold: 25},
		},
		{
			EventType: SceneEntered,
			Requires:  []types.Requirement{{Type: types.ReqFlagSet, Flag: "cursed"}},
			Update:    types.Delta{Health: -5},
		},
		{
			EventType: LevelUp,
			Update:    types.Delta{Combat: 1},
		},
	}
	return defs
}

func TestDispatch_MatchesEventType(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	deltas := Dispatch([]types.Event{{Type: LevelUp, Data: map[string]any{"level": 2}}}, s, defs)
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas from 2 matching handlers, got %d", len(deltas))
	}
	if deltas[0].Gold != 25 || deltas[1].Combat != 1 {
		t.Errorf("unexpected deltas %+v", deltas)
	}
}

func TestDispatch_RequirementsChecked(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)
	evts := []types.Event{{Type: SceneEntered}}

	if got := Dispatch(evts, s, defs); len(got) != 0 {
		t.Errorf("expected no deltas without flag, got %v", got)
	}

	s.Flags["cursed"] = true
	got := Dispatch(evts, s, defs)
	if len(got) != 1 || got[0].Health != -5 {
		t.Errorf("expected curse delta, got %v", got)
	}
}

func TestDispatch_NoHandlers(t *testing.T) {
	defs := state.NewDefs(types.GameDef{})
	s := state.NewState(defs)

	if got := Dispatch([]types.Event{{Type: ItemAdded}}, s, defs); len(got) != 0 {
		t.Errorf("expected nothing, got %v", got)
	}
}

func TestDispatch_ErroringRequirementSkipped(t *testing.T) {
	defs := state.NewDefs(types.GameDef{})
	defs.Handlers = []types.EventHandler{{
		EventType: ItemAdded,
		Requires: []types.Requirement{{Type: types.ReqCustom, Check: func(types.PlayerState) (bool, error) {
			return true, errors.New("bad script")
		}}},
		Update: types.Delta{Gold: 100},
	}}

	if got := Dispatch([]types.Event{{Type: ItemAdded}}, state.NewState(defs), defs); len(got) != 0 {
		t.Errorf("expected failing handler to be skipped, got %v", got)
	}
}

func TestDispatch_OnePerEvent(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	got := Dispatch([]types.Event{{Type: LevelUp}, {Type: LevelUp}}, s, defs)
	if len(got) != 4 {
		t.Errorf("expected handlers to run once per event, got %d", len(got))
	}
}
