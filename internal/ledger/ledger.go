// Package ledger keeps the append-only record of labels purchased per trade.
package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/tournevent/tradepost/pkg/shipping"
)

// Ledger stores purchased labels.
type Ledger interface {
	Record(ctx context.Context, rec shipping.LabelRecord) error
	// ListByTrade returns the labels of a trade, newest first.
	ListByTrade(ctx context.Context, tradeID int64) ([]shipping.LabelRecord, error)
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[int64][]shipping.LabelRecord
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[int64][]shipping.LabelRecord)}
}

// Record appends rec.
func (l *MemoryLedger) Record(ctx context.Context, rec shipping.LabelRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.TradeID] = append(l.records[rec.TradeID], rec)
	return nil
}

// ListByTrade returns a copy of the trade's records, newest first.
func (l *MemoryLedger) ListByTrade(ctx context.Context, tradeID int64) ([]shipping.LabelRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	out := append([]shipping.LabelRecord(nil), l.records[tradeID]...)
	l.mu.RUnlock()

	// Insertion order breaks ties, latest append first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
