package server

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type addressRequest struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type parcelRequest struct {
	Length       float64 `json:"length"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Weight       float64 `json:"weight"`
	DistanceUnit string  `json:"distance_unit"`
	MassUnit     string  `json:"mass_unit"`
}

type ratesRequest struct {
	Origin      addressRequest `json:"origin"`
	Destination addressRequest `json:"destination"`
	Parcel      parcelRequest  `json:"parcel"`
}

type labelRequest struct {
	TradeID          int64          `json:"trade_id"`
	Origin           addressRequest `json:"origin"`
	Destination      addressRequest `json:"destination"`
	Parcel           parcelRequest  `json:"parcel"`
	IncludeInsurance *bool          `json:"include_insurance"`
	InsuranceAmount  *float64       `json:"insurance_amount"`
	ServiceLevel     string         `json:"service_level"`
}

// --- Response types ---

type rateResponse struct {
	ID                string  `json:"id"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	Provider          string  `json:"provider"`
	ServiceLevelName  string  `json:"service_level_name"`
	ServiceLevelToken string  `json:"service_level_token"`
	EstimatedDays     int     `json:"estimated_days"`
	DurationTerms     string  `json:"duration_terms,omitempty"`
}

type ratesResponse struct {
	Rates      []rateResponse `json:"rates"`
	ShipmentID string         `json:"shipment_id"`
}

type labelResponse struct {
	TransactionID        string `json:"transaction_id"`
	ObjectState          string `json:"object_state"`
	LabelURL             string `json:"label_url"`
	TrackingNumber       string `json:"tracking_number"`
	Carrier              string `json:"carrier"`
	ServiceLevel         string `json:"service_level"`
	Cost                 string `json:"cost"`
	Currency             string `json:"currency"`
	CommercialInvoiceURL string `json:"commercial_invoice_url,omitempty"`
}

type trackingEventResponse struct {
	Status        string    `json:"status"`
	StatusDetails string    `json:"status_details"`
	Location      string    `json:"location"`
	Timestamp     time.Time `json:"timestamp"`
}

type trackingResponse struct {
	Carrier        string                  `json:"carrier"`
	TrackingNumber string                  `json:"tracking_number"`
	Status         string                  `json:"status"`
	Events         []trackingEventResponse `json:"events"`
	ETA            *time.Time              `json:"eta,omitempty"`
}

type labelRecordResponse struct {
	TradeID        int64     `json:"trade_id"`
	CallerID       int64     `json:"caller_id"`
	TransactionID  string    `json:"transaction_id"`
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier"`
	ServiceLevel   string    `json:"service_level"`
	Cost           string    `json:"cost"`
	Currency       string    `json:"currency"`
	LabelURL       string    `json:"label_url"`
	CreatedAt      time.Time `json:"created_at"`
}

type labelListResponse struct {
	Labels []labelRecordResponse `json:"labels"`
}
