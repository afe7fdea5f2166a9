package shipping

import (
	"time"

	"github.com/shopspring/decimal"
)

// DistanceUnit is the unit parcel dimensions are expressed in.
type DistanceUnit string

const (
	DistanceInch       DistanceUnit = "in"
	DistanceCentimeter DistanceUnit = "cm"
	DistanceFoot       DistanceUnit = "ft"
	DistanceMeter      DistanceUnit = "m"
)

// MassUnit is the unit parcel weight is expressed in.
type MassUnit string

const (
	MassPound    MassUnit = "lb"
	MassOunce    MassUnit = "oz"
	MassKilogram MassUnit = "kg"
	MassGram     MassUnit = "g"
)

// InsuranceCurrency is the only currency label insurance is purchased in.
const InsuranceCurrency = "USD"

// Address represents a shipping address.
type Address struct {
	Name    string `validate:"omitempty,max=100"`
	Street1 string `validate:"required,max=200"`
	Street2 string `validate:"omitempty,max=200"`
	City    string `validate:"omitempty,max=100"`
	State   string `validate:"omitempty,max=100"`
	Zip     string `validate:"omitempty,max=20"`
	Country string `validate:"omitempty,max=3"` // ISO 3166-1 alpha-2, e.g., "US"
	Phone   string `validate:"omitempty,max=30"`
	Email   string `validate:"omitempty,email"`
}

// Parcel represents the single package of a shipment.
type Parcel struct {
	Length       float64      `validate:"gt=0,lte=999,decimals2"`
	Width        float64      `validate:"gt=0,lte=999,decimals2"`
	Height       float64      `validate:"gt=0,lte=999,decimals2"`
	Weight       float64      `validate:"gt=0,lte=999,decimals2"`
	DistanceUnit DistanceUnit `validate:"required,oneof=in cm ft m"`
	MassUnit     MassUnit     `validate:"required,oneof=lb oz kg g"`
}

// RateRequest is the request for getting candidate rates.
type RateRequest struct {
	Origin      Address
	Destination Address
	Parcel      Parcel
}

// LabelRequest is the request for purchasing a label for a trade.
type LabelRequest struct {
	TradeID          int64 `validate:"gt=0"`
	Origin           Address
	Destination      Address
	Parcel           Parcel
	IncludeInsurance *bool
	InsuranceAmount  *float64 `validate:"omitempty,gte=0,decimals2"`
	ServiceLevel     string   `validate:"omitempty,max=100"`
}

// RateRequest returns the address and parcel subset of the label request.
func (r *LabelRequest) RateRequest() *RateRequest {
	return &RateRequest{
		Origin:      r.Origin,
		Destination: r.Destination,
		Parcel:      r.Parcel,
	}
}

// Insurance returns the insurance to attach to the purchase, or nil.
// Both the flag and the amount must be supplied.
func (r *LabelRequest) Insurance() *Insurance {
	if r.IncludeInsurance == nil || !*r.IncludeInsurance || r.InsuranceAmount == nil {
		return nil
	}
	return &Insurance{
		Amount:   decimal.NewFromFloat(*r.InsuranceAmount).StringFixed(2),
		Currency: InsuranceCurrency,
	}
}

// Insurance is the insurance extra on a label purchase.
type Insurance struct {
	Amount   string
	Currency string
}

// Rate represents a priced shipping offer from the aggregator.
type Rate struct {
	ID                string
	Amount            decimal.Decimal
	Currency          string
	Provider          string
	ServiceLevelName  string
	ServiceLevelToken string
	EstimatedDays     int
	DurationTerms     string
}

// Quote is the result of a shipment creation: the aggregator's shipment
// identifier and its candidate rates in the order they were returned.
type Quote struct {
	ShipmentID string
	Rates      []Rate
}

// PurchaseRequest is the request for buying a label against a rate.
type PurchaseRequest struct {
	RateID    string
	Insurance *Insurance
}

// LabelResult is a purchased label.
type LabelResult struct {
	TransactionID        string
	ObjectState          string
	LabelURL             string
	TrackingNumber       string
	Carrier              string
	ServiceLevel         string
	Cost                 string
	Currency             string
	CommercialInvoiceURL string
}

// TrackingEvent represents a tracking history entry.
type TrackingEvent struct {
	Status        string
	StatusDetails string
	Location      string
	Timestamp     time.Time
}

// TrackingInfo is the normalized tracking state of a shipment.
type TrackingInfo struct {
	Carrier        string
	TrackingNumber string
	Status         string
	Events         []TrackingEvent
	ETA            *time.Time
}

// LabelRecord is the ledger entry written for every purchased label.
type LabelRecord struct {
	TradeID        int64
	CallerID       int64
	TransactionID  string
	TrackingNumber string
	Carrier        string
	ServiceLevel   string
	Cost           string
	Currency       string
	LabelURL       string
	CreatedAt      time.Time
}
