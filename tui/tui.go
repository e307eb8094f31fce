package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/branchquest/engine"
	"github.com/nathoo/branchquest/engine/save"
	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/types"
)

// rawLine stores an unstyled output line with its classification, so it
// can be re-wrapped and re-styled when the terminal is resized.
type rawLine struct {
	text string
	kind lineKind
	note string // category shown next to a title
}

// Options configures persistence for the meta commands.
type Options struct {
	// SaveDir holds named save slots written by /save <name>.
	SaveDir string
	// Slot is the session persister used by /save and /load without a name.
	Slot save.Persister
	// Seed returns the dice seed for /reset.
	Seed func() int64
}

// Model is the Bubble Tea model for the BranchQuest TUI.
type Model struct {
	ctx    context.Context
	engine *engine.Engine
	defs   *state.Defs
	opts   Options

	viewport viewport.Model
	input    textinput.Model
	history  *History

	lines []rawLine // accumulated story lines (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
	lastCmd  string
}

// gameOutputMsg carries output into the Update loop.
type gameOutputMsg struct {
	input string // echoed player input (empty for intro)
	lines []rawLine
}

// New creates a TUI model wired to the given engine.
func New(ctx context.Context, eng *engine.Engine, defs *state.Defs, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "choice number or command"
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	if opts.SaveDir == "" {
		home, _ := os.UserHomeDir()
		opts.SaveDir = filepath.Join(home, ".branchquest", "saves")
	}
	return Model{
		ctx:     ctx,
		engine:  eng,
		defs:    defs,
		opts:    opts,
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program and blocks until the player quits.
func Run(ctx context.Context, eng *engine.Engine, defs *state.Defs, opts Options) error {
	m := New(ctx, eng, defs, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init returns the initial command that produces the intro and first scene.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput())
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		g := m.defs.Game
		header := g.Title
		if g.Version != "" {
			header += " v" + g.Version
		}
		if g.Author != "" {
			header += " by " + g.Author
		}

		lines := []rawLine{{text: header, kind: kindSystem}, {}}
		if g.Intro != "" {
			lines = append(lines, rawLine{text: g.Intro}, rawLine{})
		}
		lines = append(lines, m.sceneLines(m.engine.Current())...)
		return gameOutputMsg{lines: lines}
	}
}

// Update handles messages (key presses, window resize, game output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(m.input.Value()); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			next, _ := m.history.Next()
			m.input.SetValue(next)
			m.input.CursorEnd()
			return m, nil

		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case gameOutputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	return m, inputCmd
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if input == "" {
		return m, nil
	}
	m.history.Push(input)

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(gameOutputMsg{input: input, lines: system("Nothing to repeat.")})
			return m, nil
		}
		input = m.lastCmd
	} else if !strings.HasPrefix(input, "/") {
		m.lastCmd = input
	}

	if strings.HasPrefix(input, "/") {
		lines, quit := m.handleMeta(input)
		m = m.appendOutput(gameOutputMsg{input: input, lines: lines})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	result := m.engine.Step(m.ctx, input)
	var lines []rawLine
	for _, l := range result.Output {
		lines = append(lines, rawLine{text: l, kind: classifyOutput(l)})
	}
	if result.ShowScene {
		lines = append(lines, m.sceneLines(result.Scene)...)
	}
	if m.trace {
		lines = append(lines, formatTrace(result)...)
	}
	m = m.appendOutput(gameOutputMsg{input: input, lines: lines})
	return m, nil
}

// sceneLines renders a resolved scene: title, description and the numbered
// choices with locked ones struck through.
func (m Model) sceneLines(rs types.ResolvedScene) []rawLine {
	title := rs.Title
	if title == "" {
		title = displayName(rs.ID)
	}
	lines := []rawLine{{text: title, kind: kindTitle, note: displayName(rs.Category)}}
	for _, para := range strings.Split(rs.Description, "\n") {
		lines = append(lines, rawLine{text: para})
	}
	lines = append(lines, rawLine{})

	for i, a := range m.engine.Gate(rs, m.engine.Store.Snapshot()) {
		l := rawLine{text: fmt.Sprintf("%d. %s", i+1, a.Choice.Text), kind: kindChoice}
		if !a.Enabled {
			l.kind = kindChoiceLocked
		}
		lines = append(lines, l)
	}
	return lines
}

// appendOutput adds lines to the story and refreshes the viewport.
func (m Model) appendOutput(msg gameOutputMsg) Model {
	if msg.input != "" {
		m.lines = append(m.lines, rawLine{text: "> " + msg.input, kind: kindInput})
	}
	m.lines = append(m.lines, msg.lines...)
	// Blank line separator between turns.
	m.lines = append(m.lines, rawLine{})

	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles all lines at the current width.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	width := m.width
	if width < 10 {
		width = 10
	}

	styled := make([]string, 0, len(m.lines))
	for _, l := range m.lines {
		styled = append(styled, render(l, width))
	}
	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

func system(lines ...string) []rawLine {
	out := make([]rawLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, rawLine{text: l, kind: kindSystem})
	}
	return out
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]rawLine, bool) {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return system("Goodbye."), true

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	case "/reset":
		return m.cmdReset(), false

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return system("Trace output enabled."), false
		}
		return system("Trace output disabled."), false

	default:
		return system(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)), false
	}
}

func (m *Model) slot(name string) (save.Persister, string) {
	if name == "" && m.opts.Slot != nil {
		return m.opts.Slot, "your session slot"
	}
	if name == "" {
		name = "quicksave"
	}
	path := filepath.Join(m.opts.SaveDir, name)
	if filepath.Ext(path) == "" {
		path += ".json"
	}
	return save.NewFileStore(path, m.defs), name
}

func (m *Model) cmdSave(name string) []rawLine {
	p, label := m.slot(name)
	if err := p.Save(m.ctx, m.engine.Store.Snapshot()); err != nil {
		return system(fmt.Sprintf("Save failed: %v", err))
	}
	return system(fmt.Sprintf("Game saved to %s.", label))
}

func (m *Model) cmdLoad(name string) []rawLine {
	p, label := m.slot(name)
	s, ok, err := p.Load(m.ctx)
	if err != nil {
		return system(fmt.Sprintf("Load failed: %v", err))
	}
	if !ok {
		return system(fmt.Sprintf("No save found in %s.", label))
	}
	m.engine.Store.Restore(s)
	return append(system(fmt.Sprintf("Game loaded from %s.", label)), m.sceneLines(m.engine.Current())...)
}

func (m *Model) cmdReset() []rawLine {
	seed := time.Now().UnixNano()
	if m.opts.Seed != nil {
		seed = m.opts.Seed()
	}
	if err := m.engine.Reset(seed); err != nil {
		return system(fmt.Sprintf("Reset failed: %v", err))
	}
	return append(system("A new journey begins."), m.sceneLines(m.engine.Current())...)
}

func (m *Model) cmdHelp() []rawLine {
	lines := system(
		"/save [name]  save game (default: session slot)",
		"/load [name]  load game (default: session slot)",
		"/reset        start over",
		"/quit         exit game",
		"/state        dump current state",
		"/trace        toggle event trace output",
	)
	for _, l := range engine.HelpLines() {
		lines = append(lines, rawLine{text: l})
	}
	lines = append(lines,
		rawLine{text: "  again, g       repeat your last command"},
		rawLine{},
		rawLine{text: "PgUp/PgDn to scroll, Up/Down for command history, Esc to quit", kind: kindSystem},
	)
	return lines
}

func (m *Model) cmdState() []rawLine {
	s := m.engine.Store.Snapshot()
	ids := make([]string, 0, len(s.Inventory))
	for _, it := range s.Inventory {
		ids = append(ids, it.ID)
	}
	lines := system(
		fmt.Sprintf("Scene: %s", s.CurrentScene),
		fmt.Sprintf("Skills: combat %d, magic %d, diplomacy %d, stealth %d",
			s.Skills.Combat, s.Skills.Magic, s.Skills.Diplomacy, s.Skills.Stealth),
		fmt.Sprintf("Inventory: %v", ids),
	)
	if len(s.Flags) > 0 {
		names := make([]string, 0, len(s.Flags))
		for k, v := range s.Flags {
			names = append(names, fmt.Sprintf("%s=%t", k, v))
		}
		sort.Strings(names)
		lines = append(lines, system("Flags: "+strings.Join(names, " "))...)
	}
	lines = append(lines, system(fmt.Sprintf("Dice: seed %d, position %d", s.RNGSeed, s.RNGPosition))...)
	return lines
}

func formatTrace(result types.Result) []rawLine {
	if len(result.Events) == 0 {
		return nil
	}
	lines := []rawLine{{text: fmt.Sprintf("[trace] Events: %d", len(result.Events)), kind: kindTrace}}
	for _, e := range result.Events {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := []string{e.Type}
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Data[k]))
		}
		lines = append(lines, rawLine{text: "[trace]   " + strings.Join(parts, " "), kind: kindTrace})
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (those recall command history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
