package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tournevent/tradepost/internal/events"
	"github.com/tournevent/tradepost/pkg/shipping"
)

// fakeWriter records messages written.
type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testRecord() shipping.LabelRecord {
	return shipping.LabelRecord{
		TradeID:        42,
		CallerID:       7,
		TransactionID:  "txn_1",
		TrackingNumber: "9400",
		Carrier:        "USPS",
		Cost:           "7.10",
		Currency:       "USD",
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewLabelPurchased(t *testing.T) {
	ev := events.NewLabelPurchased(testRecord())

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, events.TypeLabelPurchased, ev.Type)
	assert.Equal(t, "42", ev.Key())
	assert.Equal(t, "7.10", ev.Cost)
	assert.NotEqual(t, ev.EventID, events.NewLabelPurchased(testRecord()).EventID)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := events.NewKafkaPublisherWithWriter(fw)
	ev := events.NewLabelPurchased(testRecord())

	require.NoError(t, p.Publish(context.Background(), ev.Key(), ev))

	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "42", string(fw.msgs[0].Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &decoded))
	assert.Equal(t, "label.purchased", decoded["type"])
	assert.Equal(t, "txn_1", decoded["transaction_id"])
	assert.Equal(t, float64(42), decoded["trade_id"])
	assert.Equal(t, "2024-05-01T12:00:00Z", decoded["occurred_at"])
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := events.NewKafkaPublisherWithWriter(&fakeWriter{err: boom})

	err := p.Publish(context.Background(), "1", map[string]string{"a": "b"})
	assert.ErrorIs(t, err, boom)
}

func TestKafkaPublisher_MarshalError(t *testing.T) {
	fw := &fakeWriter{}
	p := events.NewKafkaPublisherWithWriter(fw)

	err := p.Publish(context.Background(), "1", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, fw.msgs)
}

func TestKafkaPublisher_Close(t *testing.T) {
	fw := &fakeWriter{}
	require.NoError(t, events.NewKafkaPublisherWithWriter(fw).Close())
	assert.True(t, fw.closed)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, events.NopPublisher{}.Publish(context.Background(), "k", nil))
}
