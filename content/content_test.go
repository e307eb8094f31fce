package content

import (
	"context"
	"testing"

	"github.com/nathoo/branchquest/engine"
	"github.com/nathoo/branchquest/loader"
	"github.com/nathoo/branchquest/logger"
	"github.com/nathoo/branchquest/types"
)

func TestGame_Lints(t *testing.T) {
	r, err := loader.Lint(Game(), logger.Discard())
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	if !r.OK() {
		t.Fatalf("bundled game has problems: errors=%v undefined=%v", r.Errors, r.Undefined)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", r.Warnings)
	}
	if len(r.Opaque) != 0 {
		t.Errorf("scenes not evaluable from the initial state: %v", r.Opaque)
	}

	// Reachable only after state changes the initial snapshot cannot show.
	gated := map[string]bool{"ending": true, "key_found": true}
	for _, id := range r.Unreferenced {
		if !gated[id] {
			t.Errorf("scene %q is unreachable", id)
		}
	}
}

func TestGame_MarketRun(t *testing.T) {
	defs, err := loader.LoadFS(Game(), logger.Discard())
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	defer defs.Close()

	eng := engine.New(defs)
	eng.Logger = logger.Discard()
	if err := eng.Store.ApplyUpdate(types.Delta{Gold: 40}); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	steps := []struct {
		choice int
		scene  string
	}{
		{1, "market"},
		{1, "potion_shop"},
		{1, "market"},
		{2, "lantern_stall"},
		{1, "market"},
		{4, "start"},
	}
	for i, step := range steps {
		res, err := eng.Choose(ctx, step.choice)
		if err != nil {
			t.Fatalf("step %d: Choose(%d): %v", i, step.choice, err)
		}
		if res.Scene.ID != step.scene {
			t.Fatalf("step %d: scene = %q, want %q", i, res.Scene.ID, step.scene)
		}
	}

	if got := eng.Store.Stats().Gold; got != 5 {
		t.Errorf("gold = %d, want 5", got)
	}
	for _, id := range []string{"healingPotion", "lantern"} {
		if !eng.Store.HasItem(id) {
			t.Errorf("expected %s in inventory", id)
		}
	}

	// The lantern can only be bought once.
	if _, err := eng.Choose(ctx, 1); err != nil {
		t.Fatal(err)
	}
	avail := eng.Choices()
	if avail[1].Enabled {
		t.Error("lantern choice should be gated after purchase")
	}
}
