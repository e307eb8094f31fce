// Package cli provides the plain line-mode player: terminal I/O, output
// formatting, and meta-command dispatch for the BranchQuest engine.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"github.com/nathoo/branchquest/engine"
	"github.com/nathoo/branchquest/engine/save"
	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/types"
)

// DefaultWidth is the wrap column for scene descriptions.
const DefaultWidth = 72

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine *engine.Engine
	Defs   *state.Defs
	In     io.Reader
	Out    io.Writer

	// SaveDir holds named save slots written by /save <name>.
	SaveDir string
	// Slot is the session persister used by /save and /load without a name.
	Slot save.Persister
	// Seed returns the dice seed for /reset.
	Seed func() int64

	Width     int
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs) *CLI {
	home, _ := os.UserHomeDir()
	return &CLI{
		Engine:  eng,
		Defs:    defs,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: filepath.Join(home, ".branchquest", "saves"),
		Width:   DefaultWidth,
	}
}

// Run starts the game loop. It shows the intro and the current scene, then
// loops: prompt, input, dispatch, output. It returns at end of input or on
// /quit.
func (c *CLI) Run(ctx context.Context) {
	if c.Defs.Game.Intro != "" {
		c.printWrapped(c.Defs.Game.Intro)
		c.printLine("")
	}
	c.printScene(c.Engine.Current())

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return
			}
			continue
		}

		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Engine.Step(ctx, input)
		c.printResult(result)

		if c.Trace {
			c.printTrace(result)
		}
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(ctx, arg)

	case "/load":
		c.cmdLoad(ctx, arg)

	case "/reset":
		c.cmdReset()

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

// slot picks the persister for a meta command: a named file under SaveDir,
// or the session slot.
func (c *CLI) slot(name string) (save.Persister, string) {
	if name == "" && c.Slot != nil {
		return c.Slot, "your session slot"
	}
	if name == "" {
		name = "quicksave"
	}
	path := filepath.Join(c.SaveDir, name)
	if filepath.Ext(path) == "" {
		path += ".json"
	}
	return save.NewFileStore(path, c.Defs), name
}

func (c *CLI) cmdSave(ctx context.Context, name string) {
	p, label := c.slot(name)
	if err := p.Save(ctx, c.Engine.Store.Snapshot()); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game saved to %s.", label))
}

func (c *CLI) cmdLoad(ctx context.Context, name string) {
	p, label := c.slot(name)
	s, ok, err := p.Load(ctx)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	if !ok {
		c.printSystem(fmt.Sprintf("No save found in %s.", label))
		return
	}

	c.Engine.Store.Restore(s)
	c.printSystem(fmt.Sprintf("Game loaded from %s.", label))
	c.printScene(c.Engine.Current())
}

func (c *CLI) cmdReset() {
	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = c.Seed()
	}
	if err := c.Engine.Reset(seed); err != nil {
		c.printSystem(fmt.Sprintf("Reset failed: %v", err))
		return
	}
	c.printSystem("A new journey begins.")
	c.printScene(c.Engine.Current())
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [name]  Save game (default: session slot)",
		"  /load [name]  Load game (default: session slot)",
		"  /reset        Start over",
		"  /quit         Exit game",
		"  /help         Show this help",
		"  /state        Debug: dump current state",
		"  /trace        Toggle event trace output",
		"",
	}
	help = append(help, engine.HelpLines()...)
	help = append(help, "  again, g       repeat your last command")
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.Store.Snapshot()
	c.printSystem(fmt.Sprintf("Scene: %s", s.CurrentScene))
	c.printSystem(fmt.Sprintf("Health %d, Magic %d, Gold %d, XP %d, Level %d",
		s.Health, s.Magic, s.Gold, s.Experience, s.Level))
	c.printSystem(fmt.Sprintf("Skills: %+v", s.Skills))

	ids := make([]string, 0, len(s.Inventory))
	for _, it := range s.Inventory {
		ids = append(ids, it.ID)
	}
	c.printSystem(fmt.Sprintf("Inventory: %v", ids))

	if len(s.Flags) > 0 {
		names := make([]string, 0, len(s.Flags))
		for k, v := range s.Flags {
			names = append(names, fmt.Sprintf("%s=%t", k, v))
		}
		sort.Strings(names)
		c.printSystem(fmt.Sprintf("Flags: %s", strings.Join(names, " ")))
	}
	c.printSystem(fmt.Sprintf("Dice: seed %d, position %d", s.RNGSeed, s.RNGPosition))
}

func (c *CLI) printTrace(result types.Result) {
	if len(result.Events) == 0 {
		return
	}
	c.printSystem(fmt.Sprintf("[trace] Events: %d", len(result.Events)))
	for _, e := range result.Events {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Data[k]))
		}
		c.printSystem(fmt.Sprintf("[trace]   %s %s", e.Type, strings.Join(parts, " ")))
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
	if result.ShowScene {
		c.printScene(result.Scene)
	}
}

// printScene shows the title, the wrapped description and the numbered
// choices with their availability.
func (c *CLI) printScene(rs types.ResolvedScene) {
	c.printLine("")
	c.printLine("== " + rs.Title + " ==")
	c.printWrapped(rs.Description)
	c.printLine("")

	s := c.Engine.Store.Snapshot()
	for i, a := range c.Engine.Gate(rs, s) {
		line := fmt.Sprintf("  %d. %s", i+1, a.Choice.Text)
		if !a.Enabled {
			line += " (unavailable)"
		}
		c.printLine(line)
	}
}

func (c *CLI) printWrapped(text string) {
	width := c.Width
	if width <= 0 {
		width = DefaultWidth
	}
	c.printLine(wordwrap.String(text, width))
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
