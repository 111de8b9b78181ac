// Package repository defines the cross-contest score history store.
//
// Two instances with different lifetimes coexist in the process: a long-lived
// one owned by the subscription hub that grows for the process lifetime, and
// request-scoped ones created fresh per aggregation request. Both run the
// same code; only the owner differs. The store is never exposed as an
// ambient global.
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/standlive/internal/domain/model"
)

// HistoryEntry records one handle's raw score in one contest.
type HistoryEntry struct {
	ContestID string
	Score     float64
	Rank      int
	// Present is false for the zero entries appended when a handle with
	// history sat a contest out. Those entries break the streak.
	Present bool
}

// History maps handles to their chronological score history.
// Safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries map[string][]HistoryEntry
}

// Option applies a configuration option to the History.
type Option func(*History)

// WithCapacityHint pre-sizes the handle map for an expected participant count.
func WithCapacityHint(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.entries = make(map[string][]HistoryEntry, n)
		}
	}
}

// NewHistory creates an empty history store.
func NewHistory(opts ...Option) *History {
	h := &History{
		entries: make(map[string][]HistoryEntry),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Upsert records a handle's raw score for a contest. Recomputation of the
// same contest overwrites the existing entry rather than appending a
// duplicate, so scoring the same snapshot twice is idempotent.
func (h *History) Upsert(ctx context.Context, handle string, e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.entries[handle]
	for i := range list {
		if list[i].ContestID == e.ContestID {
			list[i] = e
			return
		}
	}
	h.entries[handle] = append(list, e)
}

// Streak returns the number of consecutive contests, ending at contestID and
// walking backward chronologically, in which the handle scored above zero.
// The current contest's own entry must be positive to start the count.
//
// The handle's history is re-sorted by numeric contest id on every call
// rather than maintained incrementally: a late-arriving contest with a
// smaller identifier must retroactively reorder the sequence.
func (h *History) Streak(ctx context.Context, handle, contestID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.entries[handle]
	sort.SliceStable(list, func(i, j int) bool {
		return model.ChronoLess(list[i].ContestID, list[j].ContestID)
	})
	h.entries[handle] = list

	cur := -1
	for i := range list {
		if list[i].ContestID == contestID {
			cur = i
			break
		}
	}
	if cur < 0 {
		return 0
	}

	streak := 0
	for i := cur; i >= 0; i-- {
		if list[i].Score <= 0 {
			break
		}
		streak++
	}
	return streak
}

// Handles returns every handle the store has seen, in no particular order.
func (h *History) Handles(ctx context.Context) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, 0, len(h.entries))
	for handle := range h.entries {
		out = append(out, handle)
	}
	return out
}

// Has reports whether the handle already has an entry for contestID.
func (h *History) Has(ctx context.Context, handle, contestID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.entries[handle] {
		if e.ContestID == contestID {
			return true
		}
	}
	return false
}

// Entries returns a copy of the handle's history in its current order.
func (h *History) Entries(ctx context.Context, handle string) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.entries[handle]
	out := make([]HistoryEntry, len(list))
	copy(out, list)
	return out
}

// Count returns the number of handles tracked.
func (h *History) Count(ctx context.Context) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
