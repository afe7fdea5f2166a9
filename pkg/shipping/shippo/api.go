package shippo

import (
	"context"
	"fmt"
)

// APIClient defines the interface for Shippo API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// CreateShipment creates a shipment and returns its rates synchronously.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// CreateTransaction purchases a label for a rate.
	CreateTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error)

	// GetTrack retrieves tracking status and history for a shipment.
	GetTrack(ctx context.Context, carrier, trackingNumber string) (*TrackResponse, error)
}

// ============================================================================
// API Request/Response Types (match Shippo REST API structure)
// ============================================================================

// Address is an address_from / address_to object.
type Address struct {
	Name    string `json:"name,omitempty"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Parcel is a single entry of the parcels list. Dimensions are sent as strings.
type Parcel struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"`
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"`
}

// ShipmentRequest represents a shipment creation request.
// POST /shipments
type ShipmentRequest struct {
	AddressFrom Address  `json:"address_from"`
	AddressTo   Address  `json:"address_to"`
	Parcels     []Parcel `json:"parcels"`
	Async       bool     `json:"async"`
}

// ServiceLevel identifies a carrier service tier.
type ServiceLevel struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Rate represents a single rate returned with a shipment.
type Rate struct {
	ObjectID      string       `json:"object_id"`
	Amount        string       `json:"amount"`
	Currency      string       `json:"currency"`
	Provider      string       `json:"provider"`
	ServiceLevel  ServiceLevel `json:"servicelevel"`
	EstimatedDays *int         `json:"estimated_days"`
	DurationTerms string       `json:"duration_terms"`
}

// ShipmentResponse represents the shipment creation response.
type ShipmentResponse struct {
	ObjectID string `json:"object_id"`
	Rates    []Rate `json:"rates"`
}

// Insurance is the insurance extra of a transaction.
type Insurance struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// TransactionExtra holds optional transaction add-ons.
type TransactionExtra struct {
	Insurance *Insurance `json:"insurance,omitempty"`
}

// TransactionRequest represents a label purchase request.
// POST /transactions
type TransactionRequest struct {
	Rate  string            `json:"rate"`
	Async bool              `json:"async"`
	Extra *TransactionExtra `json:"extra,omitempty"`
}

// TransactionRate is the rate summary embedded in a transaction.
type TransactionRate struct {
	Provider     string       `json:"provider"`
	ServiceLevel ServiceLevel `json:"servicelevel"`
	Amount       string       `json:"amount"`
	Currency     string       `json:"currency"`
}

// TransactionResponse represents a purchased transaction.
type TransactionResponse struct {
	ObjectID             string          `json:"object_id"`
	ObjectState          string          `json:"object_state"`
	LabelURL             string          `json:"label_url"`
	TrackingNumber       string          `json:"tracking_number"`
	Rate                 TransactionRate `json:"rate"`
	CommercialInvoiceURL string          `json:"commercial_invoice_url,omitempty"`
}

// TrackLocation is where a tracking event took place.
type TrackLocation struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// TrackStatus is a tracking status entry.
type TrackStatus struct {
	Status        string         `json:"status"`
	StatusDetails string         `json:"status_details"`
	Location      *TrackLocation `json:"location"`
	ObjectCreated string         `json:"object_created"`
}

// TrackResponse represents tracking information.
// GET /tracks/{carrier}/{tracking_number}
type TrackResponse struct {
	Carrier         string        `json:"carrier"`
	TrackingNumber  string        `json:"tracking_number"`
	TrackingStatus  *TrackStatus  `json:"tracking_status"`
	TrackingHistory []TrackStatus `json:"tracking_history"`
	ETA             string        `json:"eta"`
}

// APIError represents a non-2xx answer from the Shippo API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
