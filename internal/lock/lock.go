// Package lock serializes label purchases per trade.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHeld is returned when another purchase for the trade is in flight.
var ErrHeld = errors.New("lock held")

// Locker grants exclusive, expiring per-trade locks. The returned release
// func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, tradeID int64) (release func(), err error)
}

// MemoryLocker is an in-process Locker for single-instance deployments and tests.
type MemoryLocker struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	held  map[int64]entry
	token uint64
}

type entry struct {
	token   uint64
	expires time.Time
}

// NewMemoryLocker creates a MemoryLocker whose locks expire after ttl.
func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	return &MemoryLocker{ttl: ttl, now: time.Now, held: make(map[int64]entry)}
}

// Acquire takes the lock for tradeID or returns ErrHeld.
func (l *MemoryLocker) Acquire(ctx context.Context, tradeID int64) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[tradeID]; ok && now.Before(e.expires) {
		return nil, ErrHeld
	}

	l.token++
	token := l.token
	l.held[tradeID] = entry{token: token, expires: now.Add(l.ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if e, ok := l.held[tradeID]; ok && e.token == token {
				delete(l.held, tradeID)
			}
		})
	}, nil
}
