package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tournevent/tradepost/pkg/shipping"
)

func TestMemoryLedger_NewestFirst(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(ctx, shipping.LabelRecord{TradeID: 1, TransactionID: "a", CreatedAt: base}))
	require.NoError(t, l.Record(ctx, shipping.LabelRecord{TradeID: 1, TransactionID: "c", CreatedAt: base.Add(2 * time.Minute)}))
	require.NoError(t, l.Record(ctx, shipping.LabelRecord{TradeID: 1, TransactionID: "b", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, l.Record(ctx, shipping.LabelRecord{TradeID: 2, TransactionID: "other", CreatedAt: base}))

	got, err := l.ListByTrade(ctx, 1)
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.TransactionID
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func TestMemoryLedger_SameTimestampLatestFirst(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(ctx, shipping.LabelRecord{TradeID: 1, TransactionID: "first", CreatedAt: at}))
	require.NoError(t, l.Record(ctx, shipping.LabelRecord{TradeID: 1, TransactionID: "second", CreatedAt: at}))

	got, err := l.ListByTrade(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].TransactionID)
}

func TestMemoryLedger_Empty(t *testing.T) {
	got, err := NewMemoryLedger().ListByTrade(context.Background(), 9)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLabelDocument_FieldNames(t *testing.T) {
	rec := shipping.LabelRecord{
		TradeID:        7,
		CallerID:       10,
		TransactionID:  "txn_1",
		TrackingNumber: "9400",
		Carrier:        "USPS",
		ServiceLevel:   "Priority Mail",
		Cost:           "7.10",
		Currency:       "USD",
		LabelURL:       "https://labels.example/txn_1.pdf",
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := bson.Marshal(toDocument(rec))
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, int64(7), m["trade_id"])
	assert.Equal(t, "txn_1", m["transaction_id"])
	assert.Equal(t, "7.10", m["cost"])
	assert.Contains(t, m, "created_at")

	var doc labelDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := doc.record()
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	got.CreatedAt = rec.CreatedAt
	assert.Equal(t, rec, got)
}
