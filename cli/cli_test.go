package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathoo/branchquest/engine"
	"github.com/nathoo/branchquest/engine/save"
	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/logger"
	"github.com/nathoo/branchquest/types"
)

// testDefs returns minimal game definitions for CLI testing.
func testDefs() *state.Defs {
	defs := state.NewDefs(types.GameDef{
		Title:   "Test Game",
		Author:  "Test",
		Version: "1.0",
		Start:   "hall",
		Intro:   "Welcome to the test.",
	})
	defs.AddScene(types.Scene{
		ID:          "hall",
		Title:       "Great Hall",
		Description: types.Literal("A grand hall."),
		Choices: types.Literal([]types.Choice{
			{Text: "Walk into the garden", Next: types.Literal("garden")},
			{Text: "Open the vault", Next: types.Literal("garden"), GoldCost: 50},
		}),
	})
	defs.AddScene(types.Scene{
		ID:          "garden",
		Title:       "Garden",
		Description: types.Literal("A peaceful garden."),
		OnEnter: func(u types.Updater) error {
			return u.ApplyUpdate(types.Delta{Gold: 3, Items: []string{"healingPotion"}})
		},
		Choices: types.Literal([]types.Choice{
			{Text: "Back inside", Next: types.Literal("hall")},
		}),
	})
	return defs
}

func newTestCLI(t *testing.T, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	defs := testDefs()
	eng := engine.New(defs)
	eng.Logger = logger.Discard()
	var out bytes.Buffer
	c := &CLI{
		Engine:  eng,
		Defs:    defs,
		In:      strings.NewReader(input),
		Out:     &out,
		SaveDir: t.TempDir(),
		Seed:    func() int64 { return 42 },
	}
	return c, &out
}

func TestCLI_IntroAndStartingScene(t *testing.T) {
	c, out := newTestCLI(t, "/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "Welcome to the test.") {
		t.Error("expected intro text in output")
	}
	if !strings.Contains(output, "== Great Hall ==") {
		t.Error("expected starting scene title in output")
	}
	if !strings.Contains(output, "A grand hall.") {
		t.Error("expected starting scene description in output")
	}
	if !strings.Contains(output, "1. Walk into the garden") {
		t.Error("expected numbered choices")
	}
}

func TestCLI_UnavailableMarker(t *testing.T) {
	c, out := newTestCLI(t, "/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "2. Open the vault (unavailable)") {
		t.Errorf("expected gated choice marked unavailable:\n%s", output)
	}
	if strings.Contains(output, "1. Walk into the garden (unavailable)") {
		t.Error("open choice should not be marked")
	}
}

func TestCLI_ChooseByNumber(t *testing.T) {
	c, out := newTestCLI(t, "1\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "A peaceful garden.") {
		t.Error("expected garden description after choosing 1")
	}
	if got := c.Engine.Store.CurrentScene(); got != "garden" {
		t.Errorf("scene = %q, want garden", got)
	}
}

func TestCLI_GatedChoiceRejected(t *testing.T) {
	c, out := newTestCLI(t, "2\n9\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "You can't do that right now.") {
		t.Error("expected rejection for gated choice")
	}
	if !strings.Contains(output, "There is no choice 9.") {
		t.Error("expected message for out-of-range choice")
	}
	if got := c.Engine.Store.CurrentScene(); got != "hall" {
		t.Errorf("scene = %q, want hall", got)
	}
}

func TestCLI_UseItem(t *testing.T) {
	c, out := newTestCLI(t, "1\nuse healing potion\ninventory\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "You use the Healing Potion.") {
		t.Errorf("expected use confirmation:\n%s", output)
	}
	if !strings.Contains(output, "You are carrying nothing.") {
		t.Error("potion should be consumed")
	}
}

func TestCLI_HelpCommand(t *testing.T) {
	c, out := newTestCLI(t, "/help\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	for _, want := range []string{"/save", "/load", "/reset", "/quit", "use <item>"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in help output", want)
		}
	}
}

func TestCLI_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	defs := testDefs()

	eng := engine.New(defs)
	eng.Logger = logger.Discard()
	var out bytes.Buffer
	c := &CLI{
		Engine:  eng,
		Defs:    defs,
		In:      strings.NewReader("1\n/save test\n/quit\n"),
		Out:     &out,
		SaveDir: dir,
	}
	c.Run(context.Background())

	if !strings.Contains(out.String(), "Game saved to test.") {
		t.Error("expected save confirmation")
	}
	if _, err := os.Stat(filepath.Join(dir, "test.json")); err != nil {
		t.Errorf("save file missing: %v", err)
	}

	eng2 := engine.New(defs)
	eng2.Logger = logger.Discard()
	var out2 bytes.Buffer
	c2 := &CLI{
		Engine:  eng2,
		Defs:    defs,
		In:      strings.NewReader("/load test\n/quit\n"),
		Out:     &out2,
		SaveDir: dir,
	}
	c2.Run(context.Background())

	loadOutput := out2.String()
	if !strings.Contains(loadOutput, "Game loaded from test.") {
		t.Error("expected load confirmation")
	}
	if !strings.Contains(loadOutput, "A peaceful garden.") {
		t.Error("expected garden description after loading save")
	}
	if got := eng2.Store.Stats().Gold; got != 3 {
		t.Errorf("gold after load = %d, want 3", got)
	}
}

func TestCLI_SessionSlot(t *testing.T) {
	c, out := newTestCLI(t, "1\n/save\n/reset\n/load\n/quit\n")
	c.Slot = save.NewFileStore(filepath.Join(t.TempDir(), "session.yaml"), c.Defs)
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "Game saved to your session slot.") {
		t.Error("expected save to session slot")
	}
	if !strings.Contains(output, "A new journey begins.") {
		t.Error("expected reset confirmation")
	}
	if got := c.Engine.Store.CurrentScene(); got != "garden" {
		t.Errorf("scene after load = %q, want garden", got)
	}
}

func TestCLI_Reset(t *testing.T) {
	c, _ := newTestCLI(t, "1\n/reset\n/quit\n")
	c.Run(context.Background())

	s := c.Engine.Store.Snapshot()
	if s.CurrentScene != "hall" || s.Gold != 0 || len(s.History) != 0 {
		t.Errorf("state not reset: scene=%q gold=%d history=%v", s.CurrentScene, s.Gold, s.History)
	}
	if s.RNGSeed != 42 {
		t.Errorf("seed = %d, want 42", s.RNGSeed)
	}
}

func TestCLI_UnknownMetaCommand(t *testing.T) {
	c, out := newTestCLI(t, "/bogus\n/quit\n")
	c.Run(context.Background())

	if !strings.Contains(out.String(), "Unknown command") {
		t.Error("expected unknown command message")
	}
}

func TestCLI_TraceToggle(t *testing.T) {
	c, out := newTestCLI(t, "/trace\n1\n/trace\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "Trace output enabled") {
		t.Error("expected trace enabled message")
	}
	if !strings.Contains(output, "[trace]   scene_entered") {
		t.Errorf("expected scene_entered event in trace:\n%s", output)
	}
	if !strings.Contains(output, "Trace output disabled") {
		t.Error("expected trace disabled message")
	}
}

func TestCLI_StateCommand(t *testing.T) {
	c, out := newTestCLI(t, "/state\n/quit\n")
	c.Run(context.Background())

	output := out.String()
	if !strings.Contains(output, "Scene: hall") {
		t.Error("expected scene in state output")
	}
	if !strings.Contains(output, "Health 100") {
		t.Error("expected stats in state output")
	}
}

func TestCLI_EmptyInput(t *testing.T) {
	c, out := newTestCLI(t, "\n\n/quit\n")
	c.Run(context.Background())

	if strings.Contains(out.String(), "What do you want to do?") {
		t.Error("empty lines should be silently skipped by CLI")
	}
}

func TestCLI_LoadNonexistent(t *testing.T) {
	c, out := newTestCLI(t, "/load nonexistent\n/quit\n")
	c.Run(context.Background())

	if !strings.Contains(out.String(), "No save found in nonexistent.") {
		t.Error("expected missing save message")
	}
}

func TestCLI_LoadCorrupt(t *testing.T) {
	c, out := newTestCLI(t, "/load broken\n/quit\n")
	if err := os.WriteFile(filepath.Join(c.SaveDir, "broken.json"), []byte("{{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.Run(context.Background())

	if !strings.Contains(out.String(), "Load failed") {
		t.Error("expected load failure message")
	}
}

func TestCLI_Again_RepeatsLastCommand(t *testing.T) {
	c, out := newTestCLI(t, "look\nagain\n/quit\n")
	c.Run(context.Background())

	// Initial scene + look + again.
	if count := strings.Count(out.String(), "A grand hall."); count < 3 {
		t.Errorf("expected 'A grand hall.' at least 3 times, got %d", count)
	}
}

func TestCLI_G_RepeatsLastCommand(t *testing.T) {
	c, out := newTestCLI(t, "look\ng\n/quit\n")
	c.Run(context.Background())

	if count := strings.Count(out.String(), "A grand hall."); count < 3 {
		t.Errorf("expected 'A grand hall.' at least 3 times, got %d", count)
	}
}

func TestCLI_Again_NothingToRepeat(t *testing.T) {
	c, out := newTestCLI(t, "again\n/quit\n")
	c.Run(context.Background())

	if !strings.Contains(out.String(), "Nothing to repeat") {
		t.Error("expected 'Nothing to repeat' when no prior command")
	}
}

func TestCLI_EchoAndComments(t *testing.T) {
	c, out := newTestCLI(t, "# walk outside\n1\n/quit\n")
	c.EchoInput = true
	c.Run(context.Background())

	output := out.String()
	if strings.Contains(output, "walk outside") {
		t.Error("comment lines should be skipped")
	}
	if !strings.Contains(output, "> 1\n") {
		t.Error("expected echoed input after the prompt")
	}
}

func TestCLI_WrapsDescriptions(t *testing.T) {
	c, out := newTestCLI(t, "/quit\n")
	c.Width = 10
	c.Defs.Game.Intro = "one two three four five six"
	c.Run(context.Background())

	if !strings.Contains(out.String(), "one two\nthree four\nfive six") {
		t.Errorf("intro not wrapped:\n%s", out.String())
	}
}
