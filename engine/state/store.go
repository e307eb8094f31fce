package state

import (
	"sync"

	"github.com/nathoo/branchquest/engine/effects"
	"github.com/nathoo/branchquest/types"
)

// Stats is a read-only view of the numeric resources.
type Stats struct {
	Health     int
	Magic      int
	Gold       int
	Experience int
	Level      int
}

// Transit is the atomic "make choice" mutation: history entry, new scene and
// the RNG position reached while resolving the destination.
type Transit struct {
	HistoryEntry string
	SceneID      string
	RNGPosition  int64
}

// Store is the sole owner and mutator of the player record. All mutations are
// serialized behind one mutex; subscribers are notified after each mutation
// with a snapshot, outside the lock.
type Store struct {
	mu      sync.Mutex
	defs    *Defs
	state   *types.PlayerState
	pending []types.Event
	subs    []func(types.PlayerState)
}

// NewStore creates a store holding a fresh player record.
func NewStore(defs *Defs) *Store {
	s := NewState(defs)
	return &Store{defs: defs, state: &s}
}

// Subscribe registers fn to receive a snapshot after every mutation.
func (st *Store) Subscribe(fn func(types.PlayerState)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.subs = append(st.subs, fn)
}

// ApplyUpdate applies a partial update with the clamping rules of the record.
func (st *Store) ApplyUpdate(d types.Delta) error {
	return st.mutate("ApplyUpdate", func(s *types.PlayerState) []types.Event {
		return effects.Apply(s, st.items(), d)
	})
}

// HasItem reports whether the inventory holds an item with this id.
// An uninitialized store holds nothing.
func (st *Store) HasItem(itemID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.state == nil {
		return false
	}
	return effects.HasItem(st.state, itemID)
}

// UseItem consumes the first inventory entry with this id and applies its
// effect. Returns false when the item is not held.
func (st *Store) UseItem(itemID string) (bool, error) {
	used := false
	err := st.mutate("UseItem", func(s *types.PlayerState) []types.Event {
		var evts []types.Event
		used, evts = effects.Use(s, st.items(), itemID)
		return evts
	})
	return used, err
}

// Reset replaces the whole record with a fresh initial state.
func (st *Store) Reset() {
	st.replace(NewState(st.defsOrEmpty()))
}

// Restore replaces the whole record with s after normalizing it.
func (st *Store) Restore(s types.PlayerState) {
	s = Clone(s)
	effects.Normalize(&s)
	if s.CurrentScene == "" {
		s.CurrentScene = st.defsOrEmpty().Fallback()
	}
	st.replace(s)
}

// Transit records the history entry and moves to the new scene in one step.
func (st *Store) Transit(t Transit) error {
	return st.mutate("Transit", func(s *types.PlayerState) []types.Event {
		s.History = append(s.History, t.HistoryEntry)
		s.CurrentScene = t.SceneID
		s.RNGPosition = t.RNGPosition
		return []types.Event{{
			Type: "scene_entered",
			Data: map[string]any{"scene": t.SceneID},
		}}
	})
}

// Reseed sets the dice seed and rewinds the dice position.
func (st *Store) Reseed(seed int64) error {
	return st.mutate("Reseed", func(s *types.PlayerState) []types.Event {
		s.RNGSeed = seed
		s.RNGPosition = 0
		return nil
	})
}

// Snapshot returns a deep copy of the current record.
func (st *Store) Snapshot() types.PlayerState {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.state == nil {
		return types.PlayerState{}
	}
	return Clone(*st.state)
}

// Stats returns the numeric resources.
func (st *Store) Stats() Stats {
	s := st.Snapshot()
	return Stats{
		Health:     s.Health,
		Magic:      s.Magic,
		Gold:       s.Gold,
		Experience: s.Experience,
		Level:      s.Level,
	}
}

// Skills returns the skill levels.
func (st *Store) Skills() types.Skills {
	return st.Snapshot().Skills
}

// Inventory returns a copy of the inventory in display order.
func (st *Store) Inventory() []types.Item {
	return st.Snapshot().Inventory
}

// CurrentScene returns the current scene id.
func (st *Store) CurrentScene() string {
	return st.Snapshot().CurrentScene
}

// DrainEvents returns and clears the events emitted since the last drain.
func (st *Store) DrainEvents() []types.Event {
	st.mu.Lock()
	defer st.mu.Unlock()
	evts := st.pending
	st.pending = nil
	return evts
}

func (st *Store) mutate(op string, fn func(s *types.PlayerState) []types.Event) error {
	st.mu.Lock()
	if st.state == nil {
		st.mu.Unlock()
		return &ContractError{Op: op, Err: ErrNotInitialized}
	}
	evts := fn(st.state)
	st.pending = append(st.pending, evts...)
	snap := Clone(*st.state)
	subs := st.subs
	st.mu.Unlock()

	notify(subs, snap)
	return nil
}

func (st *Store) replace(s types.PlayerState) {
	st.mu.Lock()
	st.state = &s
	st.pending = nil
	snap := Clone(s)
	subs := st.subs
	st.mu.Unlock()

	notify(subs, snap)
}

func (st *Store) items() effects.ItemLookup {
	if st.defs == nil {
		return nil
	}
	return st.defs
}

func (st *Store) defsOrEmpty() *Defs {
	if st.defs == nil {
		return NewDefs(types.GameDef{})
	}
	return st.defs
}

func notify(subs []func(types.PlayerState), snap types.PlayerState) {
	for _, fn := range subs {
		fn(snap)
	}
}
