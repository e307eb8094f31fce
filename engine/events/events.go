// Package events implements single-pass content event handler dispatch.
// Handlers produce additional deltas but are never re-dispatched on the
// events those deltas cause.
package events

import (
	"github.com/nathoo/branchquest/engine/rules"
	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/types"
)

// Engine event types.
const (
	SceneEntered = "scene_entered"
	ItemAdded    = "item_added"
	ItemUsed     = "item_used"
	FlagChanged  = "flag_changed"
	LevelUp      = "level_up"
)

// Dispatch runs content handlers against the emitted events and returns the
// deltas of every handler whose event type matches and whose requirements
// hold for s. A handler whose requirement errors is skipped.
func Dispatch(events []types.Event, s types.PlayerState, defs *state.Defs) []types.Delta {
	var result []types.Delta

	for _, event := range events {
		for _, handler := range defs.Handlers {
			if handler.EventType != event.Type {
				continue
			}
			ok, err := rules.EvalAll(handler.Requires, s)
			if err != nil || !ok {
				continue
			}
			result = append(result, handler.Update)
		}
	}

	return result
}
