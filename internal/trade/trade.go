// Package trade looks up the trade records that label purchases are
// authorized against.
package trade

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no trade exists for the given id.
var ErrNotFound = errors.New("trade not found")

// Record is the subset of a trade the shipping workflow needs.
type Record struct {
	ID               int64
	OfferingPartyID  int64
	ReceivingPartyID int64
}

// Involves reports whether userID is one of the two parties of the trade.
func (r *Record) Involves(userID int64) bool {
	return userID == r.OfferingPartyID || userID == r.ReceivingPartyID
}

// Store finds trades by id.
type Store interface {
	FindByID(ctx context.Context, id int64) (*Record, error)
}

// MemoryStore is an in-process Store, used by tests and the mock mode.
type MemoryStore struct {
	mu     sync.RWMutex
	trades map[int64]Record
}

// NewMemoryStore creates a MemoryStore seeded with records.
func NewMemoryStore(records ...Record) *MemoryStore {
	s := &MemoryStore{trades: make(map[int64]Record, len(records))}
	for _, r := range records {
		s.trades[r.ID] = r
	}
	return s
}

// Put inserts or replaces a record.
func (s *MemoryStore) Put(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades[r.ID] = r
}

// FindByID returns a copy of the stored record.
func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.trades[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}
