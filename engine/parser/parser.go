// Package parser converts command strings into Intent structs.
// Intentionally dumb: a bare number picks a choice, everything else is a
// verb with an optional object.
package parser

import (
	"strconv"
	"strings"

	"github.com/nathoo/branchquest/types"
)

// Verbs understood by the engine.
const (
	VerbChoose    = "choose"
	VerbUse       = "use"
	VerbInventory = "inventory"
	VerbStats     = "stats"
	VerbHistory   = "history"
	VerbLook      = "look"
	VerbHelp      = "help"
)

var verbAliases = map[string]string{
	// Choose
	"pick":   VerbChoose,
	"select": VerbChoose,
	"option": VerbChoose,
	"go":     VerbChoose,

	// Use
	"drink":   VerbUse,
	"quaff":   VerbUse,
	"sip":     VerbUse,
	"eat":     VerbUse,
	"consume": VerbUse,
	"apply":   VerbUse,

	// Views
	"i":         VerbInventory,
	"inv":       VerbInventory,
	"items":     VerbInventory,
	"bag":       VerbInventory,
	"stat":      VerbStats,
	"status":    VerbStats,
	"character": VerbStats,
	"skills":    VerbStats,
	"log":       VerbHistory,
	"journal":   VerbHistory,
	"l":         VerbLook,
	"describe":  VerbLook,
	"?":         VerbHelp,
	"h":         VerbHelp,
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true, "my": true,
}

// Parse converts a raw command string into an Intent.
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	words := strings.Fields(strings.ToLower(input))

	// Bare number: pick that choice.
	if len(words) == 1 {
		if _, err := strconv.Atoi(words[0]); err == nil {
			return types.Intent{Verb: VerbChoose, Object: words[0]}
		}
	}

	words = expandMultiWordVerbs(words)

	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	return types.Intent{
		Verb:   words[0],
		Object: strings.Join(stripArticles(words[1:]), " "),
	}
}

// ChoiceNumber returns the 1-based choice number of a choose intent.
func ChoiceNumber(in types.Intent) (int, bool) {
	if in.Verb != VerbChoose {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(in.Object, "#"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// expandMultiWordVerbs handles "look around", "check inventory" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	switch words[0] {
	case "look":
		if words[1] == "around" {
			return []string{VerbLook}
		}
	case "check", "show", "view":
		switch words[1] {
		case "inventory", "items", "bag":
			return []string{VerbInventory}
		case "stats", "status", "skills":
			return []string{VerbStats}
		case "history", "journal":
			return []string{VerbHistory}
		}
	case "use", "drink":
		if words[1] == "up" {
			return append([]string{VerbUse}, words[2:]...)
		}
	}

	return words
}

// stripArticles removes articles ("the", "a", "an") from the word list.
func stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			result = append(result, w)
		}
	}
	return result
}
