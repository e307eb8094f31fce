package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// lowHealth switches the status bar to its warning colours.
const lowHealth = 25

// renderStatusBar produces a full-width status line: scene title on the
// left, vitals and inventory on the right.
func (m Model) renderStatusBar() string {
	st := m.engine.Store.Stats()
	rs := m.engine.Current()

	title := rs.Title
	if title == "" {
		title = displayName(rs.ID)
	}
	left := " " + title

	vitals := fmt.Sprintf("HP %d  MP %d  Gold %d  Lv %d  XP %d ",
		st.Health, st.Magic, st.Gold, st.Level, st.Experience)
	right := vitals

	inv := m.engine.Store.Inventory()
	if len(inv) > 0 {
		names := make([]string, 0, len(inv))
		for _, it := range inv {
			names = append(names, it.Name)
		}
		candidate := fmt.Sprintf("%s | %s", strings.Join(names, ", "), vitals)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		} else {
			right = fmt.Sprintf("Inv: %d | %s", len(inv), vitals)
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	style := styleStatusBar
	if st.Health <= lowHealth {
		style = styleHealthLow
	}
	return style.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
