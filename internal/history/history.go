// Package history records completed rolls per roller.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one completed roll.
type Record struct {
	ID        uuid.UUID
	Roller    string
	Formula   string
	Canonical string
	Results   string
	Total     int
	CreatedAt time.Time
}

// Store persists Records.
type Store interface {
	// Append stores rec.
	//
	// Precondition: rec.ID must be non-nil and rec.Roller non-empty.
	Append(ctx context.Context, rec Record) error
	// Recent returns up to limit records for roller, newest first.
	//
	// Precondition: limit > 0.
	Recent(ctx context.Context, roller string, limit int) ([]Record, error)
}

// DefaultCapacity is the per-roller bound used by NewMemoryStore when capacity <= 0.
const DefaultCapacity = 100

// MemoryStore keeps the most recent records per roller in memory.
//
// Invariant: at most capacity records are retained per roller.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	byRoller map[string][]Record
}

// NewMemoryStore creates a MemoryStore retaining capacity records per roller.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{capacity: capacity, byRoller: make(map[string][]Record)}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == uuid.Nil || rec.Roller == "" {
		panic("history: MemoryStore.Append precondition violated: ID and Roller must be set")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := append(s.byRoller[rec.Roller], rec)
	if len(recs) > s.capacity {
		recs = append([]Record(nil), recs[len(recs)-s.capacity:]...)
	}
	s.byRoller[rec.Roller] = recs
	return nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(ctx context.Context, roller string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		panic("history: MemoryStore.Recent precondition violated: limit must be > 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.byRoller[roller]
	n := min(limit, len(recs))
	out := make([]Record, 0, n)
	for i := len(recs) - 1; i >= len(recs)-n; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}
