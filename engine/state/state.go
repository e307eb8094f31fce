// Package state owns the player record and the immutable content tables
// (Scene Catalog and Item Table) the engine reads from.
package state

import (
	"io"
	"sort"

	"github.com/nathoo/branchquest/types"
)

// Defs holds the immutable game definitions: scene catalog, item table and
// content event handlers.
type Defs struct {
	Game     types.GameDef
	Scenes   map[string]types.Scene
	Items    map[string]types.Item
	Handlers []types.EventHandler

	// Recovery overrides Game.Start as the fallback scene when set.
	Recovery string

	// Runtime backs computed content (the Lua VM). May be nil.
	Runtime io.Closer
}

// NewDefs creates empty definitions seeded with the default item table.
func NewDefs(game types.GameDef) *Defs {
	if game.Start == "" {
		game.Start = types.DefaultFallback
	}
	d := &Defs{
		Game:   game,
		Scenes: map[string]types.Scene{},
		Items:  map[string]types.Item{},
	}
	for _, it := range DefaultItems() {
		d.Items[it.ID] = it
	}
	return d
}

// DefaultItems returns the built-in consumables.
func DefaultItems() []types.Item {
	return []types.Item{
		{
			ID:          "healingPotion",
			Name:        "Healing Potion",
			Description: "A small red vial that restores health.",
			Value:       25,
			Usable:      true,
			Type:        "consumable",
			OnUse:       &types.Delta{Health: 50},
		},
		{
			ID:          "magicPotion",
			Name:        "Magic Potion",
			Description: "A swirling blue draught that restores magic.",
			Value:       30,
			Usable:      true,
			Type:        "consumable",
			OnUse:       &types.Delta{Magic: 30},
		},
	}
}

// AddScene registers a scene. A later registration with the same id replaces
// the earlier one; the return value reports whether that happened.
func (d *Defs) AddScene(sc types.Scene) bool {
	_, replaced := d.Scenes[sc.ID]
	d.Scenes[sc.ID] = sc
	return replaced
}

// AddItem registers an item, last registration wins.
func (d *Defs) AddItem(it types.Item) bool {
	_, replaced := d.Items[it.ID]
	d.Items[it.ID] = it
	return replaced
}

// Scene returns the scene with the given id.
func (d *Defs) Scene(id string) (types.Scene, bool) {
	sc, ok := d.Scenes[id]
	return sc, ok
}

// Item returns the item table entry with the given id.
func (d *Defs) Item(id string) (types.Item, bool) {
	it, ok := d.Items[id]
	return it, ok
}

// SceneIDs returns all defined scene ids in sorted order.
func (d *Defs) SceneIDs() []string {
	ids := make([]string, 0, len(d.Scenes))
	for id := range d.Scenes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fallback returns the sentinel scene id used whenever a destination cannot
// be resolved.
func (d *Defs) Fallback() string {
	if d.Recovery != "" {
		return d.Recovery
	}
	if d.Game.Start == "" {
		return types.DefaultFallback
	}
	return d.Game.Start
}

// Close releases the content runtime, if any.
func (d *Defs) Close() error {
	if d.Runtime == nil {
		return nil
	}
	return d.Runtime.Close()
}

// NewState creates a fresh player record positioned at the start scene.
func NewState(defs *Defs) types.PlayerState {
	return types.PlayerState{
		CurrentScene: defs.Fallback(),
		Inventory:    []types.Item{},
		Health:       100,
		Magic:        50,
		Gold:         0,
		Experience:   0,
		Level:        1,
		Skills: types.Skills{
			Combat:    1,
			Magic:     1,
			Diplomacy: 1,
			Stealth:   1,
		},
		Flags:   map[string]bool{},
		History: []string{},
	}
}

// Clone returns a deep copy of s, safe to hand to content functions.
func Clone(s types.PlayerState) types.PlayerState {
	c := s
	c.Inventory = append([]types.Item(nil), s.Inventory...)
	c.History = append([]string(nil), s.History...)
	c.Flags = make(map[string]bool, len(s.Flags))
	for k, v := range s.Flags {
		c.Flags[k] = v
	}
	return c
}

// SkillLevel returns the named skill, or 0 for an unknown name.
func SkillLevel(s types.PlayerState, skill string) int {
	switch skill {
	case types.SkillCombat:
		return s.Skills.Combat
	case types.SkillMagic:
		return s.Skills.Magic
	case types.SkillDiplomacy:
		return s.Skills.Diplomacy
	case types.SkillStealth:
		return s.Skills.Stealth
	default:
		return 0
	}
}
