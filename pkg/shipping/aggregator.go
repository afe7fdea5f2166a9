// Package shipping provides the domain model and error taxonomy for buying
// shipping labels through a carrier aggregator.
package shipping

import (
	"context"
)

// Aggregator defines the operations the carrier aggregator must provide.
type Aggregator interface {
	// Name returns the aggregator identifier (e.g., "shippo").
	Name() string

	// CreateShipment creates a shipment and returns its candidate rates in one round trip.
	CreateShipment(ctx context.Context, req *RateRequest) (*Quote, error)

	// CreateTransaction purchases a label against a rate.
	CreateTransaction(ctx context.Context, req *PurchaseRequest) (*LabelResult, error)

	// GetTracking looks up a shipment by carrier and tracking number.
	GetTracking(ctx context.Context, carrier, trackingNumber string) (*TrackingInfo, error)
}
