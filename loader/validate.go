package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/branchquest/engine/state"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// issues accumulates problems found while compiling and validating.
type issues struct {
	errors   []string
	warnings []string
}

func (i *issues) errorf(format string, args ...any) {
	i.errors = append(i.errors, fmt.Sprintf(format, args...))
}

func (i *issues) warnf(format string, args ...any) {
	i.warnings = append(i.warnings, fmt.Sprintf(format, args...))
}

// err returns a *ValidationError when any error was recorded.
func (i *issues) err() error {
	if len(i.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: i.errors, Warnings: i.warnings}
}

// validate checks the compiled defs for referential integrity. Only literal
// destinations can be checked here; computed ones are covered by the graph
// report.
func validate(defs *state.Defs, iss *issues) {
	if defs.Game.Title == "" {
		iss.errorf("Game.title is required")
	}

	if len(defs.Scenes) == 0 {
		iss.errorf("no scenes defined")
	}

	if defs.Game.Start == "" {
		iss.errorf("Game.start is required")
	} else if _, ok := defs.Scene(defs.Game.Start); !ok {
		iss.errorf("start scene %q not found in defined scenes", defs.Game.Start)
	}

	for _, id := range defs.SceneIDs() {
		sc := defs.Scenes[id]
		if sc.Choices.Func != nil {
			continue
		}
		for _, ch := range sc.Choices.Value {
			if ch.Next.Func != nil || ch.Next.Value == "" {
				continue
			}
			if _, ok := defs.Scene(ch.Next.Value); !ok {
				iss.warnf("scene %q choice %q leads to undefined scene %q", id, ch.Text, ch.Next.Value)
			}
		}
	}
}
