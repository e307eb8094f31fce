// Package types defines the shared data structures for the BranchQuest engine.
// Apart from the two Lazy constructors this package contains only type
// definitions; evaluation lives in engine/resolve.
package types

// Skill names as they appear in content and in Delta/Requirement clauses.
const (
	SkillCombat     = "combat"
	SkillMagic      = "magic_skill"
	SkillDiplomacy  = "diplomacy"
	SkillStealth    = "stealth"
	DefaultFallback = "start"
)

// Item is an inventory entry. Items are copied into the inventory by value.
type Item struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Value       int    `json:"value,omitempty" yaml:"value,omitempty"`
	Usable      bool   `json:"usable,omitempty" yaml:"usable,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`

	// OnUse is applied when the item is consumed. Table data only; never saved.
	OnUse *Delta `json:"-" yaml:"-"`
}

// Skills holds the four named skill levels. Each is at least 1.
type Skills struct {
	Combat    int `json:"combat" yaml:"combat"`
	Magic     int `json:"magic_skill" yaml:"magic_skill"`
	Diplomacy int `json:"diplomacy" yaml:"diplomacy"`
	Stealth   int `json:"stealth" yaml:"stealth"`
}

// PlayerState is the complete mutable state of one game session.
type PlayerState struct {
	SessionID    string          `json:"session_id" yaml:"session_id"`
	CurrentScene string          `json:"current_scene" yaml:"current_scene"`
	Inventory    []Item          `json:"inventory" yaml:"inventory"`
	Health       int             `json:"health" yaml:"health"`
	Magic        int             `json:"magic" yaml:"magic"`
	Gold         int             `json:"gold" yaml:"gold"`
	Experience   int             `json:"experience" yaml:"experience"`
	Level        int             `json:"level" yaml:"level"`
	Skills       Skills          `json:"skills" yaml:"skills"`
	Flags        map[string]bool `json:"flags" yaml:"flags"`
	History      []string        `json:"game_history" yaml:"game_history"`
	RNGSeed      int64           `json:"rng_seed" yaml:"rng_seed"`
	RNGPosition  int64           `json:"rng_position" yaml:"rng_position"`
}

// Delta is a partial update. Zero numeric fields and empty collections mean
// "no change"; numeric fields are added to the current value and clamped.
type Delta struct {
	Health     int
	Magic      int
	Gold       int
	Experience int
	Level      int
	Combat     int
	MagicSkill int
	Diplomacy  int
	Stealth    int
	Flags      map[string]bool
	Items      []string
}

// Lazy is either a literal value or a function of the current player state.
// Exactly one of Value/Func is meaningful: a non-nil Func wins.
type Lazy[T any] struct {
	Value T
	Func  func(s PlayerState) (T, error)
}

// Literal wraps a fixed value.
func Literal[T any](v T) Lazy[T] {
	return Lazy[T]{Value: v}
}

// Computed wraps a state-dependent value.
func Computed[T any](fn func(s PlayerState) (T, error)) Lazy[T] {
	return Lazy[T]{Func: fn}
}

// Predicate is a custom eligibility test over the player state.
type Predicate func(s PlayerState) (bool, error)

// Requirement clause types.
const (
	ReqGoldAtLeast  = "gold_at_least"
	ReqHasItem      = "has_item"
	ReqFlagSet      = "flag_set"
	ReqFlagNot      = "flag_not"
	ReqSkillAtLeast = "skill_at_least"
	ReqCustom       = "custom"
)

// Requirement is a single typed eligibility clause on a choice.
type Requirement struct {
	Type   string
	Skill  string // skill_at_least
	Amount int    // gold_at_least, skill_at_least
	Item   string // has_item
	Flag   string // flag_set, flag_not
	Check  Predicate
}

// SkillRequirement is the declarative {skill, level} gate on a choice.
type SkillRequirement struct {
	Skill string
	Level int
}

// Choice is a directed edge out of a scene.
type Choice struct {
	Text string
	Next Lazy[string]

	// Requires is evaluated together with the declarative fields below.
	Requires         []Requirement
	Condition        Predicate
	SkillRequirement *SkillRequirement
	GoldCost         int
	ItemRequired     string
	FlagRequired     string
}

// Hook is an entry side effect. It receives the store's write surface.
type Hook func(u Updater) error

// Updater is the write surface handed to entry hooks.
type Updater interface {
	ApplyUpdate(d Delta) error
	UseItem(itemID string) (bool, error)
	Snapshot() PlayerState
}

// Dice is the random source available while a computed destination is
// evaluated.
type Dice interface {
	Roll(sides int) int
	WeightedSelect(weights []int) int
}

// Scene is an immutable node in the narrative graph.
type Scene struct {
	ID          string
	Title       string
	Description Lazy[string]
	Choices     Lazy[[]Choice]
	OnEnter     Hook
	Category    string
	Image       string
}

// ResolvedScene is a scene materialized against a specific player state.
type ResolvedScene struct {
	ID          string
	Title       string
	Description string
	Choices     []Choice
	Category    string
	Image       string
}

// GameDef holds game metadata.
type GameDef struct {
	Title   string
	Author  string
	Version string
	Start   string // starting scene id, also the fallback scene
	Intro   string
}

// Intent is the parsed representation of a player command.
type Intent struct {
	Verb   string
	Object string // optional
}

// Event is emitted after a state mutation.
type Event struct {
	Type string
	Data map[string]any
}

// EventHandler is a content rule triggered by an engine event.
type EventHandler struct {
	EventType string
	Requires  []Requirement
	Update    Delta
}

// Result is the output of a single player action.
type Result struct {
	Events []Event
	Output []string
	Scene  ResolvedScene

	// ShowScene asks the presentation layer to (re)draw Scene.
	ShowScene bool
}
