// Package tui provides a Bubble Tea full-screen player for BranchQuest.
package tui

// History remembers submitted commands for Up/Down recall. While the
// player browses, the half-typed line is kept as a draft and restored when
// they step past the newest entry.
type History struct {
	entries []string
	limit   int
	pos     int // len(entries) when not browsing
	draft   string
}

// NewHistory creates a history holding at most limit commands.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

// Len returns the number of remembered commands.
func (h *History) Len() int {
	return len(h.entries)
}

// Push records a command and stops browsing. Repeating the newest entry
// is not recorded twice.
func (h *History) Push(cmd string) {
	if n := len(h.entries); n == 0 || h.entries[n-1] != cmd {
		h.entries = append(h.entries, cmd)
		if over := len(h.entries) - h.limit; over > 0 {
			h.entries = append(h.entries[:0:0], h.entries[over:]...)
		}
	}
	h.Reset()
}

// Prev steps to an older command. current is the input line as typed; it
// is saved as the draft when browsing starts. ok is false when there is
// nothing to recall.
func (h *History) Prev(current string) (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.pos == len(h.entries) {
		h.draft = current
	}
	if h.pos > 0 {
		h.pos--
	}
	return h.entries[h.pos], true
}

// Next steps to a newer command. Past the newest it returns the draft and
// ok=false.
func (h *History) Next() (string, bool) {
	if h.pos >= len(h.entries) {
		return h.draft, false
	}
	h.pos++
	if h.pos == len(h.entries) {
		return h.draft, false
	}
	return h.entries[h.pos], true
}

// Reset stops browsing and drops the draft.
func (h *History) Reset() {
	h.pos = len(h.entries)
	h.draft = ""
}
