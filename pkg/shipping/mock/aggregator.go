// Package mock provides a mock aggregator implementation for testing.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tournevent/tradepost/pkg/shipping"
)

// Aggregator is a mock shipping.Aggregator for testing. Hooks override the
// canned responses; every call is counted and its request kept.
type Aggregator struct {
	name string

	OnCreateShipment    func(ctx context.Context, req *shipping.RateRequest) (*shipping.Quote, error)
	OnCreateTransaction func(ctx context.Context, req *shipping.PurchaseRequest) (*shipping.LabelResult, error)
	OnGetTracking       func(ctx context.Context, carrier, trackingNumber string) (*shipping.TrackingInfo, error)

	mu           sync.Mutex
	shipments    []*shipping.RateRequest
	transactions []*shipping.PurchaseRequest
	tracks       int
}

// New creates a new mock aggregator.
func New(name string) *Aggregator {
	return &Aggregator{name: name}
}

// Name returns the aggregator name.
func (a *Aggregator) Name() string {
	return a.name
}

// CreateShipment returns two mock rates unless OnCreateShipment is set.
func (a *Aggregator) CreateShipment(ctx context.Context, req *shipping.RateRequest) (*shipping.Quote, error) {
	a.mu.Lock()
	a.shipments = append(a.shipments, req)
	a.mu.Unlock()

	if a.OnCreateShipment != nil {
		return a.OnCreateShipment(ctx, req)
	}

	now := time.Now().UnixNano()
	return &shipping.Quote{
		ShipmentID: fmt.Sprintf("%s-shipment-%d", a.name, now),
		Rates: []shipping.Rate{
			{
				ID:                fmt.Sprintf("%s-rate-priority-%d", a.name, now),
				Amount:            decimal.RequireFromString("15.82"),
				Currency:          "USD",
				Provider:          "USPS",
				ServiceLevelName:  "Priority Mail",
				ServiceLevelToken: "usps_priority",
				EstimatedDays:     2,
			},
			{
				ID:                fmt.Sprintf("%s-rate-ground-%d", a.name, now),
				Amount:            decimal.RequireFromString("8.40"),
				Currency:          "USD",
				Provider:          "USPS",
				ServiceLevelName:  "Ground Advantage",
				ServiceLevelToken: "usps_ground_advantage",
				EstimatedDays:     5,
			},
		},
	}, nil
}

// CreateTransaction returns a mock label unless OnCreateTransaction is set.
func (a *Aggregator) CreateTransaction(ctx context.Context, req *shipping.PurchaseRequest) (*shipping.LabelResult, error) {
	a.mu.Lock()
	a.transactions = append(a.transactions, req)
	a.mu.Unlock()

	if a.OnCreateTransaction != nil {
		return a.OnCreateTransaction(ctx, req)
	}

	txID := fmt.Sprintf("%s-txn-%d", a.name, time.Now().UnixNano())
	return &shipping.LabelResult{
		TransactionID:  txID,
		ObjectState:    "VALID",
		LabelURL:       fmt.Sprintf("https://labels.%s.mock/%s.pdf", a.name, txID),
		TrackingNumber: fmt.Sprintf("9400%d", time.Now().UnixNano()%1000000000),
		Carrier:        "USPS",
		ServiceLevel:   "Ground Advantage",
		Cost:           "8.40",
		Currency:       "USD",
	}, nil
}

// GetTracking returns mock tracking information unless OnGetTracking is set.
func (a *Aggregator) GetTracking(ctx context.Context, carrier, trackingNumber string) (*shipping.TrackingInfo, error) {
	a.mu.Lock()
	a.tracks++
	a.mu.Unlock()

	if a.OnGetTracking != nil {
		return a.OnGetTracking(ctx, carrier, trackingNumber)
	}

	return &shipping.TrackingInfo{
		Carrier:        carrier,
		TrackingNumber: trackingNumber,
		Status:         "TRANSIT",
		Events: []shipping.TrackingEvent{
			{Status: "TRANSIT", StatusDetails: "In transit", Location: "Oakland, CA", Timestamp: time.Now().Add(-time.Hour)},
		},
	}, nil
}

// ShipmentCalls returns the number of CreateShipment calls.
func (a *Aggregator) ShipmentCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.shipments)
}

// TransactionCalls returns the number of CreateTransaction calls.
func (a *Aggregator) TransactionCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.transactions)
}

// TrackingCalls returns the number of GetTracking calls.
func (a *Aggregator) TrackingCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tracks
}

// Calls returns the total number of aggregator calls.
func (a *Aggregator) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.shipments) + len(a.transactions) + a.tracks
}

// LastTransaction returns the most recent purchase request, or nil.
func (a *Aggregator) LastTransaction() *shipping.PurchaseRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.transactions) == 0 {
		return nil
	}
	return a.transactions[len(a.transactions)-1]
}

var _ shipping.Aggregator = (*Aggregator)(nil)
