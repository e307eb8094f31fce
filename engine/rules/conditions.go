// Package rules implements the choice gate: typed requirement clauses
// evaluated conjunctively against a player state snapshot.
package rules

import (
	"fmt"

	"github.com/nathoo/branchquest/engine/effects"
	"github.com/nathoo/branchquest/engine/state"
	"github.com/nathoo/branchquest/types"
)

// EvalRequirement evaluates a single clause. An error is returned only when a
// custom predicate fails; unknown clause types are simply false.
func EvalRequirement(r types.Requirement, s types.PlayerState) (bool, error) {
	switch r.Type {
	case types.ReqGoldAtLeast:
		return s.Gold >= r.Amount, nil

	case types.ReqHasItem:
		return effects.HasItem(&s, r.Item), nil

	case types.ReqFlagSet:
		return s.Flags[r.Flag], nil

	case types.ReqFlagNot:
		return !s.Flags[r.Flag], nil

	case types.ReqSkillAtLeast:
		return state.SkillLevel(s, r.Skill) >= r.Amount, nil

	case types.ReqCustom:
		if r.Check == nil {
			return true, nil
		}
		return callPredicate(r.Check, s)

	default:
		return false, nil
	}
}

// EvalAll returns true if every clause passes. The first failing clause
// short-circuits; an empty list is vacuously true.
func EvalAll(reqs []types.Requirement, s types.PlayerState) (bool, error) {
	for _, r := range reqs {
		ok, err := EvalRequirement(r, s)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// callPredicate runs content code, turning a panic into an error.
func callPredicate(p types.Predicate, s types.PlayerState) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()
	return p(state.Clone(s))
}
