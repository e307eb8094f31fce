// Package engine provides the transition engine and the Step() orchestrator
// that wires together parsing, resolution, the choice gate, the state store
// and content event handlers into a single turn.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathoo/branchquest/engine/events"
	"github.com/nathoo/branchquest/engine/parser"
	"github.com/nathoo/branchquest/engine/resolve"
	"github.com/nathoo/branchquest/engine/rules"
	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/logger"
	"github.com/nathoo/branchquest/telemetry"
	"github.com/nathoo/branchquest/types"
)

var (
	// ErrNoSuchChoice is returned for a choice number outside the scene.
	ErrNoSuchChoice = errors.New("no such choice")
	// ErrChoiceUnavailable is returned when the gate rejects a choice.
	ErrChoiceUnavailable = errors.New("choice unavailable")
)

// LevelUpPolicy controls progression after each transition.
type LevelUpPolicy struct {
	XPPerLevel      int
	HealthBonus     int
	MagicBonus      int
	ResetExperience bool
}

// DefaultLevelUp is one level per transition at experience >= level*100,
// +10 health and +10 magic, experience kept.
func DefaultLevelUp() LevelUpPolicy {
	return LevelUpPolicy{XPPerLevel: 100, HealthBonus: 10, MagicBonus: 10}
}

// DiceBinder is implemented by content runtimes whose computed destinations
// may roll dice. The returned func releases the binding.
type DiceBinder interface {
	BindDice(d types.Dice) (release func())
}

// Engine holds the game definitions and the state store.
type Engine struct {
	Defs    *state.Defs
	Store   *state.Store
	Logger  *slog.Logger
	Tracer  trace.Tracer
	LevelUp LevelUpPolicy

	mu sync.Mutex
}

// New creates a new engine with a fresh player record.
func New(defs *state.Defs) *Engine {
	return &Engine{
		Defs:    defs,
		Store:   state.NewStore(defs),
		LevelUp: DefaultLevelUp(),
	}
}

func (e *Engine) log() *slog.Logger {
	return logger.OrDefault(e.Logger)
}

func (e *Engine) tracer() trace.Tracer {
	if e.Tracer == nil {
		return telemetry.NoopTracer()
	}
	return e.Tracer
}

// Current resolves the scene the player is in. Never cached.
func (e *Engine) Current() types.ResolvedScene {
	return resolve.Current(e.Defs, e.Store.Snapshot(), e.log())
}

// Choices returns the current scene's choices with their eligibility.
func (e *Engine) Choices() []rules.Availability {
	s := e.Store.Snapshot()
	rs := resolve.Current(e.Defs, s, e.log())
	return rules.Gate(rs.Choices, s, e.log())
}

// Gate evaluates the choices of an already resolved scene against s.
func (e *Engine) Gate(rs types.ResolvedScene, s types.PlayerState) []rules.Availability {
	return rules.Gate(rs.Choices, s, e.log())
}

// Choose selects the n-th (1-based) choice of the current scene after
// re-checking the gate. A rejected choice leaves state untouched.
func (e *Engine) Choose(ctx context.Context, n int) (types.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.Store.Snapshot()
	rs := resolve.Current(e.Defs, s, e.log())
	if n < 1 || n > len(rs.Choices) {
		return types.Result{Scene: rs}, fmt.Errorf("%w: %d", ErrNoSuchChoice, n)
	}
	c := rs.Choices[n-1]
	if !rules.Eligible(c, s, e.log()) {
		return types.Result{Scene: rs}, fmt.Errorf("%w: %q", ErrChoiceUnavailable, c.Text)
	}
	return e.transition(ctx, c)
}

// Select executes a transition for a choice the caller has already gated.
// Content errors are logged and degraded, never returned; the only error is
// a store contract violation.
func (e *Engine) Select(ctx context.Context, c types.Choice) (types.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transition(ctx, c)
}

func (e *Engine) transition(ctx context.Context, c types.Choice) (types.Result, error) {
	s := e.Store.Snapshot()

	ctx, span := e.tracer().Start(ctx, "engine.select",
		trace.WithAttributes(
			attribute.String("scene.from", s.CurrentScene),
			attribute.String("choice.text", c.Text),
		),
	)
	defer span.End()

	// Drop anything left over from mutations outside a transition.
	e.Store.DrainEvents()

	entry := resolve.SceneTitle(e.Defs, s.CurrentScene) + ": " + c.Text
	rng := RestoreRNG(s.RNGSeed, s.RNGPosition)
	next := e.resolveNext(c, s, rng)

	if err := e.Store.Transit(state.Transit{
		HistoryEntry: entry,
		SceneID:      next,
		RNGPosition:  rng.Position(),
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return types.Result{}, err
	}
	span.SetAttributes(attribute.String("scene.to", next))

	e.runOnEnter(ctx, next)

	var evts []types.Event
	if evt, ok := e.applyLevelUp(); ok {
		span.AddEvent(events.LevelUp)
		evts = append(evts, evt)
	}

	result := types.Result{ShowScene: true}
	result.Events = e.dispatch(evts)
	result.Scene = e.Current()
	return result, nil
}

// resolveNext evaluates the destination exactly once and substitutes the
// fallback for errors, empty ids and unknown scenes.
func (e *Engine) resolveNext(c types.Choice, s types.PlayerState, rng *RNG) string {
	fallback := e.Defs.Fallback()

	if b, ok := e.Defs.Runtime.(DiceBinder); ok && c.Next.Func != nil {
		release := b.BindDice(rng)
		defer release()
	}

	next, err := resolve.Eval(c.Next, s)
	if err != nil {
		e.log().Warn("choice destination failed", "scene", s.CurrentScene, "choice", c.Text, "error", err)
		return fallback
	}
	if _, ok := e.Defs.Scene(next); !ok {
		e.log().Warn("choice leads to unknown scene, using fallback",
			"scene", s.CurrentScene, "choice", c.Text, "target", next, "fallback", fallback)
		return fallback
	}
	return next
}

func (e *Engine) runOnEnter(ctx context.Context, sceneID string) {
	sc, ok := e.Defs.Scene(sceneID)
	if !ok || sc.OnEnter == nil {
		return
	}
	if err := callHook(sc.OnEnter, e.Store); err != nil {
		e.log().Warn("scene entry effect failed", "scene", sceneID, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
	}
}

func callHook(h types.Hook, u types.Updater) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entry effect panicked: %v", r)
		}
	}()
	return h(u)
}

// applyLevelUp grants at most one level per transition.
func (e *Engine) applyLevelUp() (types.Event, bool) {
	p := e.LevelUp
	if p.XPPerLevel <= 0 {
		p = DefaultLevelUp()
	}

	s := e.Store.Snapshot()
	threshold := s.Level * p.XPPerLevel
	if s.Experience < threshold {
		return types.Event{}, false
	}

	d := types.Delta{Level: 1, Health: p.HealthBonus, Magic: p.MagicBonus}
	if p.ResetExperience {
		d.Experience = -s.Experience
	}
	if err := e.Store.ApplyUpdate(d); err != nil {
		e.log().Error("level up failed", "error", err)
		return types.Event{}, false
	}

	e.log().Info("level up", "level", s.Level+1, "experience", s.Experience)
	return types.Event{
		Type: events.LevelUp,
		Data: map[string]any{"level": s.Level + 1},
	}, true
}

// dispatch drains store events, runs content handlers once over them and
// applies their deltas. Events caused by handler deltas are reported but not
// dispatched again.
func (e *Engine) dispatch(extra []types.Event) []types.Event {
	evts := append(e.Store.DrainEvents(), extra...)

	deltas := events.Dispatch(evts, e.Store.Snapshot(), e.Defs)
	for _, d := range deltas {
		if err := e.Store.ApplyUpdate(d); err != nil {
			e.log().Error("event handler update failed", "error", err)
		}
	}

	return append(evts, e.Store.DrainEvents()...)
}

// Use consumes an inventory item by id.
func (e *Engine) Use(itemID string) (types.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Store.DrainEvents()
	name := itemID
	if it, ok := e.Defs.Item(itemID); ok && it.Name != "" {
		name = it.Name
	}

	used, err := e.Store.UseItem(itemID)
	if err != nil {
		return types.Result{}, err
	}

	var result types.Result
	if !used {
		result.Output = append(result.Output, fmt.Sprintf("You don't have a %s.", name))
	} else {
		result.Output = append(result.Output, fmt.Sprintf("You use the %s.", name))
		result.Events = e.dispatch(nil)
	}
	result.Scene = e.Current()
	return result, nil
}

// Reset starts a new game with the given dice seed.
func (e *Engine) Reset(seed int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Store.Reset()
	err := e.Store.Reseed(seed)
	e.Store.DrainEvents()
	return err
}

// Step processes one player command and returns the result.
func (e *Engine) Step(ctx context.Context, input string) types.Result {
	intent := parser.Parse(input)

	switch intent.Verb {
	case "":
		return e.say("What do you want to do? Type a choice number, or help.")

	case parser.VerbChoose:
		n, ok := parser.ChoiceNumber(intent)
		if !ok {
			return e.say("Choose which? Type the number of a choice.")
		}
		result, err := e.Choose(ctx, n)
		switch {
		case errors.Is(err, ErrNoSuchChoice):
			return e.say(fmt.Sprintf("There is no choice %d.", n))
		case errors.Is(err, ErrChoiceUnavailable):
			return e.say("You can't do that right now.")
		case err != nil:
			return e.say("Something went wrong: " + err.Error())
		}
		return result

	case parser.VerbUse:
		if intent.Object == "" {
			return e.say("Use what?")
		}
		id, err := resolve.Item(e.Store.Inventory(), intent.Object)
		if err != nil {
			return e.say(capitalize(err.Error()) + ".")
		}
		result, err := e.Use(id)
		if err != nil {
			return e.say("Something went wrong: " + err.Error())
		}
		return result

	case parser.VerbInventory:
		return e.say(e.inventoryLines()...)

	case parser.VerbStats:
		return e.say(e.statsLines()...)

	case parser.VerbHistory:
		return e.say(e.historyLines()...)

	case parser.VerbLook:
		return types.Result{Scene: e.Current(), ShowScene: true}

	case parser.VerbHelp:
		return e.say(HelpLines()...)

	default:
		return e.say(fmt.Sprintf("I don't know how to %q. Type help for commands.", intent.Verb))
	}
}

func (e *Engine) say(lines ...string) types.Result {
	return types.Result{Output: lines, Scene: e.Current()}
}

func (e *Engine) inventoryLines() []string {
	inv := e.Store.Inventory()
	if len(inv) == 0 {
		return []string{"You are carrying nothing."}
	}
	lines := []string{"You are carrying:"}
	for _, it := range inv {
		line := "  " + it.Name
		if it.Usable {
			line += " (usable)"
		}
		lines = append(lines, line)
	}
	return lines
}

func (e *Engine) statsLines() []string {
	st := e.Store.Stats()
	sk := e.Store.Skills()
	return []string{
		fmt.Sprintf("Level %d  XP %d  Health %d/100  Magic %d/100  Gold %d",
			st.Level, st.Experience, st.Health, st.Magic, st.Gold),
		fmt.Sprintf("Combat %d  Magic %d  Diplomacy %d  Stealth %d",
			sk.Combat, sk.Magic, sk.Diplomacy, sk.Stealth),
	}
}

func (e *Engine) historyLines() []string {
	h := e.Store.Snapshot().History
	if len(h) == 0 {
		return []string{"Your story has not begun."}
	}
	lines := make([]string, 0, len(h))
	for i, entry := range h {
		lines = append(lines, fmt.Sprintf("%3d. %s", i+1, entry))
	}
	return lines
}

// HelpLines lists the commands understood by Step.
func HelpLines() []string {
	return []string{
		"Commands:",
		"  <number>       take that choice",
		"  use <item>     use an item from your inventory",
		"  inventory, i   list what you carry",
		"  stats          show health, gold and skills",
		"  history        show the story so far",
		"  look, l        describe the scene again",
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
