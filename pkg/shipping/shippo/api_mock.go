package shippo

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateShipment    func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	OnCreateTransaction func(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error)
	OnGetTrack          func(ctx context.Context, carrier, trackingNumber string) (*TrackResponse, error)

	shipmentCalls    atomic.Int32
	transactionCalls atomic.Int32
	trackCalls       atomic.Int32
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// ShipmentCalls returns how many times CreateShipment was called.
func (m *MockAPIClient) ShipmentCalls() int { return int(m.shipmentCalls.Load()) }

// TransactionCalls returns how many times CreateTransaction was called.
func (m *MockAPIClient) TransactionCalls() int { return int(m.transactionCalls.Load()) }

// TrackCalls returns how many times GetTrack was called.
func (m *MockAPIClient) TrackCalls() int { return int(m.trackCalls.Load()) }

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return &APIError{StatusCode: 500, Message: "Simulated API error"}
	}
	return nil
}

// CreateShipment returns a mock shipment with three rates.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	m.shipmentCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}

	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}

	days := func(n int) *int { return &n }

	return &ShipmentResponse{
		ObjectID: "shp_" + uuid.New().String()[:8],
		Rates: []Rate{
			{
				ObjectID:      "rate_" + uuid.New().String()[:8],
				Amount:        "12.50",
				Currency:      "USD",
				Provider:      "USPS",
				ServiceLevel:  ServiceLevel{Name: "Priority Mail", Token: "usps_priority"},
				EstimatedDays: days(2),
				DurationTerms: "Delivery in 1 to 3 business days.",
			},
			{
				ObjectID:      "rate_" + uuid.New().String()[:8],
				Amount:        "9.99",
				Currency:      "USD",
				Provider:      "USPS",
				ServiceLevel:  ServiceLevel{Name: "Ground Advantage", Token: "usps_ground_advantage"},
				EstimatedDays: days(5),
				DurationTerms: "Delivery in 2 to 5 business days.",
			},
			{
				ObjectID:      "rate_" + uuid.New().String()[:8],
				Amount:        "24.35",
				Currency:      "USD",
				Provider:      "UPS",
				ServiceLevel:  ServiceLevel{Name: "2nd Day Air", Token: "ups_second_day_air"},
				EstimatedDays: days(2),
			},
		},
	}, nil
}

// CreateTransaction purchases a mock label.
func (m *MockAPIClient) CreateTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	m.transactionCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}

	if m.OnCreateTransaction != nil {
		return m.OnCreateTransaction(ctx, req)
	}

	txID := "txn_" + uuid.New().String()[:8]
	trackingNumber := fmt.Sprintf("9400%018d", time.Now().UnixNano()%1_000_000_000_000_000)

	return &TransactionResponse{
		ObjectID:       txID,
		ObjectState:    "VALID",
		LabelURL:       fmt.Sprintf("https://labels.shippo.mock/%s.pdf", txID),
		TrackingNumber: trackingNumber,
		Rate: TransactionRate{
			Provider:     "USPS",
			ServiceLevel: ServiceLevel{Name: "Ground Advantage", Token: "usps_ground_advantage"},
			Amount:       "9.99",
			Currency:     "USD",
		},
	}, nil
}

// GetTrack returns mock tracking information.
func (m *MockAPIClient) GetTrack(ctx context.Context, carrier, trackingNumber string) (*TrackResponse, error) {
	m.trackCalls.Add(1)
	if err := m.simulate(); err != nil {
		return nil, err
	}

	if m.OnGetTrack != nil {
		return m.OnGetTrack(ctx, carrier, trackingNumber)
	}

	now := time.Now().UTC()
	history := []TrackStatus{
		{
			Status:        "PRE_TRANSIT",
			StatusDetails: "Shipping label created",
			Location:      &TrackLocation{City: "San Francisco", State: "CA"},
			ObjectCreated: now.Add(-48 * time.Hour).Format(time.RFC3339),
		},
		{
			Status:        "TRANSIT",
			StatusDetails: "Arrived at regional facility",
			Location:      &TrackLocation{City: "Oakland", State: "CA"},
			ObjectCreated: now.Add(-24 * time.Hour).Format(time.RFC3339),
		},
	}

	return &TrackResponse{
		Carrier:         strings.ToLower(carrier),
		TrackingNumber:  trackingNumber,
		TrackingStatus:  &history[len(history)-1],
		TrackingHistory: history,
		ETA:             now.Add(48 * time.Hour).Format(time.RFC3339),
	}, nil
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
