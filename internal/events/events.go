// Package events publishes label purchase notifications.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tournevent/tradepost/pkg/shipping"
)

// TypeLabelPurchased is the event type of LabelPurchased.
const TypeLabelPurchased = "label.purchased"

// Publisher sends an event keyed for partitioning.
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
}

// LabelPurchased is emitted once per purchased label.
type LabelPurchased struct {
	EventID        string    `json:"event_id"`
	Type           string    `json:"type"`
	TradeID        int64     `json:"trade_id"`
	CallerID       int64     `json:"caller_id"`
	TransactionID  string    `json:"transaction_id"`
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier"`
	Cost           string    `json:"cost"`
	Currency       string    `json:"currency"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewLabelPurchased builds the event for a ledger record.
func NewLabelPurchased(rec shipping.LabelRecord) LabelPurchased {
	return LabelPurchased{
		EventID:        uuid.NewString(),
		Type:           TypeLabelPurchased,
		TradeID:        rec.TradeID,
		CallerID:       rec.CallerID,
		TransactionID:  rec.TransactionID,
		TrackingNumber: rec.TrackingNumber,
		Carrier:        rec.Carrier,
		Cost:           rec.Cost,
		Currency:       rec.Currency,
		OccurredAt:     rec.CreatedAt.UTC(),
	}
}

// Key is the partition key of the event: the trade id.
func (e LabelPurchased) Key() string {
	return strconv.FormatInt(e.TradeID, 10)
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, string, any) error { return nil }
