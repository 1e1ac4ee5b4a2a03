package usecases

import "github.com/samirrijal/campfinder/internal/core/domain"

// History mirrors the browser history stack of view states. It is not safe
// for concurrent use; ViewStateMachine guards it.
type History struct {
	entries []domain.ViewState
	index   int
}

// NewHistory returns a history holding a single map entry.
func NewHistory() *History {
	return &History{entries: []domain.ViewState{domain.MapView}}
}

// Push appends s after the current entry, discarding forward entries.
func (h *History) Push(s domain.ViewState) {
	h.entries = append(h.entries[:h.index+1], s)
	h.index = len(h.entries) - 1
}

// Replace overwrites the current entry.
func (h *History) Replace(s domain.ViewState) {
	h.entries[h.index] = s
}

// Back moves to the previous entry. It reports false at the first entry.
func (h *History) Back() (domain.ViewState, bool) {
	if h.index == 0 {
		return domain.ViewState{}, false
	}
	h.index--
	return h.entries[h.index], true
}

// Forward moves to the next entry. It reports false at the last entry.
func (h *History) Forward() (domain.ViewState, bool) {
	if h.index >= len(h.entries)-1 {
		return domain.ViewState{}, false
	}
	h.index++
	return h.entries[h.index], true
}

// Current returns the entry the user is on.
func (h *History) Current() domain.ViewState {
	return h.entries[h.index]
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Index returns the position of the current entry.
func (h *History) Index() int { return h.index }
