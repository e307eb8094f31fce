// Package resolve materializes scene definitions against a player state and
// maps item names typed by the player to item IDs.
package resolve

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/logger"
	"github.com/nathoo/branchquest/types"
)

// Recovery choice texts.
const (
	ErrorChoiceText    = "Return to start (error occurred)"
	ContinueChoiceText = "Continue"
	ReturnChoiceText   = "Return to start"
)

// Error scene titles.
const (
	TitleNotFound        = "Scene Not Found"
	TitleProcessingError = "Processing Error"
)

// CategoryError marks generated error scenes.
const CategoryError = "error"

// Eval evaluates a Lazy value against a copy of s. Panics in content code are
// returned as errors.
func Eval[T any](l types.Lazy[T], s types.PlayerState) (v T, err error) {
	if l.Func == nil {
		return l.Value, nil
	}
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			err = fmt.Errorf("content panicked: %v", r)
		}
	}()
	return l.Func(state.Clone(s))
}

// HasNext reports whether a choice declares a destination at all.
func HasNext(c types.Choice) bool {
	return c.Next.Func != nil || c.Next.Value != ""
}

// Valid reports whether a choice is structurally usable: non-empty text and
// a destination. Eligibility is the gate's concern.
func Valid(c types.Choice) bool {
	return strings.TrimSpace(c.Text) != "" && HasNext(c)
}

// Scene materializes sc against s. It never fails: a broken description is
// replaced by an error text, broken choices by a single recovery choice, and
// the result always has at least one choice. Results are never cached.
func Scene(sc types.Scene, s types.PlayerState, fallback string, log *slog.Logger) types.ResolvedScene {
	log = logger.OrDefault(log)

	desc, err := Eval(sc.Description, s)
	if err != nil {
		log.Warn("scene description failed", "scene", sc.ID, "error", err)
		desc = fmt.Sprintf("Something went wrong while describing %s.", sc.Title)
	}

	choices, err := Eval(sc.Choices, s)
	if err != nil {
		log.Warn("scene choices failed", "scene", sc.ID, "error", err)
		choices = []types.Choice{{Text: ErrorChoiceText, Next: types.Literal(fallback)}}
	}

	valid := make([]types.Choice, 0, len(choices))
	for i, c := range choices {
		if !Valid(c) {
			log.Warn("dropping malformed choice", "scene", sc.ID, "index", i, "choice", c.Text)
			continue
		}
		valid = append(valid, c)
	}
	if len(valid) == 0 {
		valid = append(valid, types.Choice{Text: ContinueChoiceText, Next: types.Literal(fallback)})
	}

	return types.ResolvedScene{
		ID:          sc.ID,
		Title:       sc.Title,
		Description: desc,
		Choices:     valid,
		Category:    sc.Category,
		Image:       sc.Image,
	}
}

// Current resolves the scene the player is in. A missing scene yields the
// "Scene Not Found" error scene; any unexpected failure yields "Processing
// Error". Neither is ever returned as an error.
func Current(defs *state.Defs, s types.PlayerState, log *slog.Logger) (rs types.ResolvedScene) {
	fallback := defs.Fallback()
	defer func() {
		if r := recover(); r != nil {
			logger.OrDefault(log).Error("scene resolution panicked", "scene", s.CurrentScene, "panic", r)
			rs = ProcessingError(s.CurrentScene, fallback)
		}
	}()

	sc, ok := defs.Scene(s.CurrentScene)
	if !ok {
		logger.OrDefault(log).Warn("current scene not found", "scene", s.CurrentScene)
		return NotFound(s.CurrentScene, fallback)
	}
	return Scene(sc, s, fallback, log)
}

// NotFound builds the error scene shown for an unknown scene id.
func NotFound(id, fallback string) types.ResolvedScene {
	return types.ResolvedScene{
		ID:          id,
		Title:       TitleNotFound,
		Description: fmt.Sprintf("The path to %q has not been written yet.", id),
		Choices:     []types.Choice{{Text: ReturnChoiceText, Next: types.Literal(fallback)}},
		Category:    CategoryError,
	}
}

// ProcessingError builds the error scene shown when resolution itself breaks.
func ProcessingError(id, fallback string) types.ResolvedScene {
	return types.ResolvedScene{
		ID:          id,
		Title:       TitleProcessingError,
		Description: "Something went wrong. The world shimmers and steadies.",
		Choices:     []types.Choice{{Text: ReturnChoiceText, Next: types.Literal(fallback)}},
		Category:    CategoryError,
	}
}

// SceneTitle returns the title used in history entries.
func SceneTitle(defs *state.Defs, id string) string {
	if sc, ok := defs.Scene(id); ok && sc.Title != "" {
		return sc.Title
	}
	return "Unknown Scene"
}
