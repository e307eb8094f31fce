// Package effects implements the arithmetic of state mutation: every Delta is
// applied here, with the clamping and merge rules of the player record.
package effects

import "github.com/nathoo/branchquest/types"

// Resource bounds.
const (
	MaxHealth = 100
	MaxMagic  = 100
	MinLevel  = 1
	MinSkill  = 1
)

// ItemLookup resolves item ids against the item table.
type ItemLookup interface {
	Item(id string) (types.Item, bool)
}

// Apply applies a delta to the state in place and returns the events it emitted.
// Unknown item ids are dropped; ids already held are not added twice.
func Apply(s *types.PlayerState, items ItemLookup, d types.Delta) []types.Event {
	var events []types.Event

	s.Health = clamp(s.Health+d.Health, 0, MaxHealth)
	s.Magic = clamp(s.Magic+d.Magic, 0, MaxMagic)
	s.Gold = atLeast(s.Gold+d.Gold, 0)
	s.Experience = atLeast(s.Experience+d.Experience, 0)
	s.Level = atLeast(s.Level+d.Level, MinLevel)

	s.Skills.Combat = atLeast(s.Skills.Combat+d.Combat, MinSkill)
	s.Skills.Magic = atLeast(s.Skills.Magic+d.MagicSkill, MinSkill)
	s.Skills.Diplomacy = atLeast(s.Skills.Diplomacy+d.Diplomacy, MinSkill)
	s.Skills.Stealth = atLeast(s.Skills.Stealth+d.Stealth, MinSkill)

	if len(d.Flags) > 0 && s.Flags == nil {
		s.Flags = map[string]bool{}
	}
	for flag, value := range d.Flags {
		old, existed := s.Flags[flag]
		s.Flags[flag] = value
		if !existed || old != value {
			events = append(events, types.Event{
				Type: "flag_changed",
				Data: map[string]any{"flag": flag, "value": value},
			})
		}
	}

	for _, id := range d.Items {
		if items == nil || HasItem(s, id) {
			continue
		}
		item, ok := items.Item(id)
		if !ok {
			continue
		}
		s.Inventory = append(s.Inventory, item)
		events = append(events, types.Event{
			Type: "item_added",
			Data: map[string]any{"item": id},
		})
	}

	return events
}

// Use removes the first inventory entry with the given id and applies the
// item's on-use delta from the table. Returns false if the item is not held.
func Use(s *types.PlayerState, items ItemLookup, itemID string) (bool, []types.Event) {
	idx := -1
	for i, it := range s.Inventory {
		if it.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	s.Inventory = append(s.Inventory[:idx:idx], s.Inventory[idx+1:]...)

	events := []types.Event{{
		Type: "item_used",
		Data: map[string]any{"item": itemID},
	}}
	if items != nil {
		if def, ok := items.Item(itemID); ok && def.OnUse != nil {
			events = append(events, Apply(s, items, *def.OnUse)...)
		}
	}
	return true, events
}

// HasItem reports whether an item with the given id is in the inventory.
func HasItem(s *types.PlayerState, itemID string) bool {
	for _, it := range s.Inventory {
		if it.ID == itemID {
			return true
		}
	}
	return false
}

// Normalize forces every bounded field back into range. Used on restored
// snapshots, which are never trusted wholesale.
func Normalize(s *types.PlayerState) {
	Apply(s, nil, types.Delta{})
	if s.Flags == nil {
		s.Flags = map[string]bool{}
	}
	if s.Inventory == nil {
		s.Inventory = []types.Item{}
	}
	if s.History == nil {
		s.History = []string{}
	}

	seen := map[string]bool{}
	kept := s.Inventory[:0]
	for _, it := range s.Inventory {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		kept = append(kept, it)
	}
	s.Inventory = kept
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func atLeast(v, lo int) int {
	if v < lo {
		return lo
	}
	return v
}
