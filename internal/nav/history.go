package nav

import "time"

// Entry is one visited Location and the moment it was recorded.
type Entry struct {
	Location   Location
	RecordedAt time.Time
}

// History is the back/forward record of a single session: an ordered list of
// entries and a cursor pointing at the one currently displayed.
type History struct {
	entries []Entry
	pos     int // -1 until the first Record
	now     func() time.Time
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{
		pos: -1,
		now: time.Now,
	}
}

// Record appends loc after the cursor, discarding any forward entries first.
// Repeated Locations are recorded again, never collapsed.
func (h *History) Record(loc Location) {
	if h.pos < len(h.entries)-1 {
		// Clear the dropped tail so it can be collected.
		clear(h.entries[h.pos+1:])
		h.entries = h.entries[:h.pos+1]
	}
	h.entries = append(h.entries, Entry{Location: loc, RecordedAt: h.now()})
	h.pos = len(h.entries) - 1
}

// CanGoBack reports whether there is a previous entry.
func (h *History) CanGoBack() bool {
	return h.pos > 0
}

// CanGoForward reports whether there is a next entry.
func (h *History) CanGoForward() bool {
	return h.pos < len(h.entries)-1
}

// StepBack moves the cursor one entry back and returns the Location there.
func (h *History) StepBack() (Location, error) {
	if !h.CanGoBack() {
		return "", ErrAtHistoryBoundary
	}
	h.pos--
	return h.entries[h.pos].Location, nil
}

// StepForward moves the cursor one entry forward and returns the Location there.
func (h *History) StepForward() (Location, error) {
	if !h.CanGoForward() {
		return "", ErrAtHistoryBoundary
	}
	h.pos++
	return h.entries[h.pos].Location, nil
}

// Current returns the displayed Location. It reports false only before the
// first Record.
func (h *History) Current() (Location, bool) {
	if h.pos < 0 || h.pos >= len(h.entries) {
		return "", false
	}
	return h.entries[h.pos].Location, true
}

// Peek returns the Location offset entries away from the cursor without
// moving it.
func (h *History) Peek(offset int) (Location, bool) {
	i := h.pos + offset
	if h.pos < 0 || i < 0 || i >= len(h.entries) {
		return "", false
	}
	return h.entries[i].Location, true
}

// Len returns the total number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Position returns the cursor index, or -1 when empty.
func (h *History) Position() int {
	return h.pos
}

// Entries returns a copy of all entries, oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}
