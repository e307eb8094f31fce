package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/nathoo/branchquest/engine"
	"github.com/nathoo/branchquest/engine/resolve"
	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/types"
)

// dynamicSamples is how many dice seeds a computed destination is tried with.
const dynamicSamples = 8

// Edge is a choice pointing at a scene id.
type Edge struct {
	From   string
	Choice string
	To     string
}

// Report is the result of linting a content directory.
type Report struct {
	Title    string
	Scenes   int
	Errors   []string
	Warnings []string

	// Undefined lists choices whose destination is not a defined scene.
	Undefined []Edge
	// Unreferenced lists scenes no choice leads to (the start scene excluded).
	Unreferenced []string
	// Opaque lists scenes whose choices or destinations could not be
	// evaluated against the initial state.
	Opaque []string
}

// OK reports whether the content has no errors and no broken edges.
func (r *Report) OK() bool {
	return len(r.Errors) == 0 && len(r.Undefined) == 0
}

// Lint loads the content in fsys and builds a Report. Only I/O and Lua
// execution failures are returned as errors; content problems land in the
// report.
func Lint(fsys fs.FS, log *slog.Logger) (*Report, error) {
	defs, iss, err := load(fsys, log)
	var ve *ValidationError
	if err != nil && !errors.As(err, &ve) {
		return nil, err
	}
	defer defs.Close()

	r := &Report{
		Title:    defs.Game.Title,
		Scenes:   len(defs.Scenes),
		Errors:   iss.errors,
		Warnings: iss.warnings,
	}
	r.Undefined, r.Unreferenced, r.Opaque = Graph(defs)
	return r, nil
}

// Graph walks every scene's choices against the initial player state.
// Literal destinations are read directly; computed ones are evaluated with a
// handful of dice seeds, so the result is best effort.
func Graph(defs *state.Defs) (undefined []Edge, unreferenced, opaque []string) {
	referenced := map[string]bool{defs.Fallback(): true}
	binder, _ := defs.Runtime.(engine.DiceBinder)

	for _, id := range defs.SceneIDs() {
		sc := defs.Scenes[id]
		s := state.NewState(defs)
		s.CurrentScene = id

		choices, err := resolve.Eval(sc.Choices, s)
		if err != nil {
			opaque = append(opaque, id)
			continue
		}

		partial := false
		for _, ch := range choices {
			targets, ok := destinations(ch, s, binder)
			if !ok {
				partial = true
			}
			for _, to := range targets {
				if _, exists := defs.Scene(to); exists {
					referenced[to] = true
					continue
				}
				undefined = append(undefined, Edge{From: id, Choice: ch.Text, To: to})
			}
		}
		if partial {
			opaque = append(opaque, id)
		}
	}

	for _, id := range defs.SceneIDs() {
		if !referenced[id] {
			unreferenced = append(unreferenced, id)
		}
	}
	return undefined, unreferenced, opaque
}

// destinations returns the distinct scene ids a choice may lead to. ok is
// false when a computed destination failed for some sample.
func destinations(ch types.Choice, s types.PlayerState, binder engine.DiceBinder) ([]string, bool) {
	if ch.Next.Func == nil {
		if ch.Next.Value == "" {
			return nil, true
		}
		return []string{ch.Next.Value}, true
	}

	seen := map[string]bool{}
	ok := true
	for seed := int64(0); seed < dynamicSamples; seed++ {
		release := func() {}
		if binder != nil {
			release = binder.BindDice(engine.NewRNG(seed))
		}
		to, err := resolve.Eval(ch.Next, s)
		release()
		if err != nil || to == "" {
			ok = false
			continue
		}
		seen[to] = true
	}

	out := make([]string, 0, len(seen))
	for to := range seen {
		out = append(out, to)
	}
	sort.Strings(out)
	return out, ok
}

// Write prints the report in a plain, line-oriented form.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "%s: %d scene(s)\n", r.Title, r.Scenes)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	for _, wn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", wn)
	}
	for _, e := range r.Undefined {
		fmt.Fprintf(w, "undefined: %s -> %s (%q)\n", e.From, e.To, e.Choice)
	}
	for _, id := range r.Unreferenced {
		fmt.Fprintf(w, "unreferenced: %s\n", id)
	}
	for _, id := range r.Opaque {
		fmt.Fprintf(w, "not fully evaluated: %s\n", id)
	}
	if r.OK() {
		fmt.Fprintln(w, "ok")
	}
}
