package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarrative = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	styleCategory = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	styleChoice = lipgloss.NewStyle().
			Foreground(lipgloss.Color("117"))

	styleChoiceLocked = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Strikethrough(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleHealthLow = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarrative lineKind = iota
	kindTitle
	kindChoice
	kindChoiceLocked
	kindSystem
	kindError
	kindTrace
	kindInput
)

var titleCaser = cases.Title(language.English)

// displayName turns an id like "forest_edge" or "tower-door" into
// "Forest Edge".
func displayName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	return titleCaser.String(strings.Join(words, " "))
}

// classifyOutput picks a style for a line the engine produced.
func classifyOutput(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "You can't"),
		strings.HasPrefix(line, "You don't have"),
		strings.HasPrefix(line, "You aren't carrying"),
		strings.HasPrefix(line, "There is no choice"),
		strings.HasPrefix(line, "I don't know how"),
		strings.HasPrefix(line, "Something went wrong"):
		return kindError
	default:
		return kindNarrative
	}
}

// render wraps a line to width and applies its style.
func render(line rawLine, width int) string {
	if line.text == "" {
		return ""
	}
	wrapped := wordwrap.String(line.text, width)

	switch line.kind {
	case kindTitle:
		out := styleTitle.Render(wrapped)
		if line.note != "" {
			out += " " + styleCategory.Render("("+line.note+")")
		}
		return out
	case kindChoice:
		return styleChoice.Render(wrapped)
	case kindChoiceLocked:
		return styleChoiceLocked.Render(wrapped)
	case kindSystem:
		return styleSystem.Render("[" + wrapped + "]")
	case kindError:
		return styleError.Render(wrapped)
	case kindTrace:
		return styleTrace.Render(wrapped)
	case kindInput:
		return stylePlayerInput.Render(wrapped)
	default:
		return styleNarrative.Render(wrapped)
	}
}
