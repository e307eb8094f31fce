package rules

import (
	"log/slog"

	"github.com/nathoo/branchquest/logger"
	"github.com/nathoo/branchquest/types"
)

// Clauses normalizes every gating mechanism on a choice into one ordered
// clause list: the custom condition first, then the declarative skill, gold,
// item and flag fields, then the explicit Requires list.
func Clauses(c types.Choice) []types.Requirement {
	var reqs []types.Requirement

	if c.Condition != nil {
		reqs = append(reqs, types.Requirement{Type: types.ReqCustom, Check: c.Condition})
	}
	if sr := c.SkillRequirement; sr != nil {
		reqs = append(reqs, types.Requirement{Type: types.ReqSkillAtLeast, Skill: sr.Skill, Amount: sr.Level})
	}
	if c.GoldCost > 0 {
		reqs = append(reqs, types.Requirement{Type: types.ReqGoldAtLeast, Amount: c.GoldCost})
	}
	if c.ItemRequired != "" {
		reqs = append(reqs, types.Requirement{Type: types.ReqHasItem, Item: c.ItemRequired})
	}
	if c.FlagRequired != "" {
		reqs = append(reqs, types.Requirement{Type: types.ReqFlagSet, Flag: c.FlagRequired})
	}

	return append(reqs, c.Requires...)
}

// Eligible decides whether a choice is currently selectable. It never
// mutates state and fails closed: a predicate error makes the choice
// ineligible and is logged.
func Eligible(c types.Choice, s types.PlayerState, log *slog.Logger) bool {
	ok, err := EvalAll(Clauses(c), s)
	if err != nil {
		logger.OrDefault(log).Warn("choice condition failed",
			"scene", s.CurrentScene, "choice", c.Text, "error", err)
		return false
	}
	return ok
}

// Availability pairs a choice with its eligibility, in display order.
type Availability struct {
	Choice  types.Choice
	Enabled bool
}

// Gate evaluates every choice of a resolved scene.
func Gate(choices []types.Choice, s types.PlayerState, log *slog.Logger) []Availability {
	out := make([]Availability, 0, len(choices))
	for _, c := range choices {
		out = append(out, Availability{Choice: c, Enabled: Eligible(c, s, log)})
	}
	return out
}
