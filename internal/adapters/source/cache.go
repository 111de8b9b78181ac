package source

import (
	"context"
	"sync"

	"github.com/okian/standlive/internal/domain/model"
	"github.com/okian/standlive/pkg/metrics"
)

// Cache memoizes a Source's successful results per contest identifier for
// the process lifetime. Errors are never cached, so the live path's next
// poll retries naturally.
//
// Callers mutate the rows they receive (the scoring engine writes derived
// fields and re-sorts), so every hit returns a fresh copy of the cached
// record.
type Cache struct {
	next Source

	mu      sync.Mutex
	records map[string]*model.ContestRecord
}

// NewCache wraps next with per-contest memoization.
func NewCache(next Source) *Cache {
	return &Cache{
		next:    next,
		records: make(map[string]*model.ContestRecord),
	}
}

// Standings implements Source.
func (c *Cache) Standings(ctx context.Context, contestID string) (*model.ContestRecord, error) {
	c.mu.Lock()
	if rec, ok := c.records[contestID]; ok {
		c.mu.Unlock()
		metrics.RecordCacheHit()
		return cloneRecord(rec), nil
	}
	c.mu.Unlock()

	metrics.RecordCacheMiss()
	rec, err := c.next.Standings(ctx, contestID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// A concurrent fetch may have won the race; the snapshots are
	// equivalent, keep the existing one.
	if existing, ok := c.records[contestID]; ok {
		rec = existing
	} else {
		c.records[contestID] = rec
	}
	c.mu.Unlock()

	return cloneRecord(rec), nil
}

// Len returns the number of cached contests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// cloneRecord copies the record and its row slice. Problem results are
// shared; nothing downstream writes to them.
func cloneRecord(rec *model.ContestRecord) *model.ContestRecord {
	cp := *rec
	cp.Rows = make([]model.ParticipantRow, len(rec.Rows))
	copy(cp.Rows, rec.Rows)
	return &cp
}
