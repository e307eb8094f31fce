package resolve

import (
	"fmt"
	"strings"

	"github.com/nathoo/branchquest/types"
)

// AmbiguityError indicates multiple inventory items matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates no inventory item matched a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("you aren't carrying %q", e.Name)
}

// Item maps a name typed by the player to the id of an item in inventory.
func Item(inv []types.Item, name string) (string, error) {
	nameLower := strings.ToLower(strings.TrimSpace(name))

	// Exact id match wins outright.
	for _, it := range inv {
		if it.ID == name {
			return it.ID, nil
		}
	}

	var matches []string
	for _, it := range inv {
		if containsStr(matches, it.ID) {
			continue
		}
		if matchesName(it, nameLower) {
			matches = append(matches, it.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Name: name}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguityError{Name: name, Candidates: matches}
	}
}

// matchesName checks an item's display name and id against the query
// (case-insensitive). "potion" matches "Healing Potion"; "healing potion"
// matches id "healingPotion".
func matchesName(it types.Item, nameLower string) bool {
	itemNameLower := strings.ToLower(it.Name)
	if itemNameLower == nameLower {
		return true
	}
	for _, word := range strings.Fields(itemNameLower) {
		if word == nameLower {
			return true
		}
	}

	idLower := strings.ToLower(it.ID)
	if idLower == nameLower {
		return true
	}
	// Space and underscore normalization against camelCase or snake_case ids.
	squashed := strings.NewReplacer(" ", "", "_", "").Replace(nameLower)
	return strings.ReplaceAll(idLower, "_", "") == squashed
}

func containsStr(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
