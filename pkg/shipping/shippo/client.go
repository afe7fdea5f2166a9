// Package shippo provides integration with the Shippo shipping aggregator API.
package shippo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tournevent/tradepost/pkg/shipping"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const aggregatorName = "shippo"

// Config holds Shippo configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	AuthScheme string
	Timeout    time.Duration
	UseMock    bool // When true, uses mock API client
}

// Client is the Shippo aggregator client.
// It implements the shipping.Aggregator interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Shippo client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			AuthScheme: cfg.AuthScheme,
			Timeout:    cfg.Timeout,
		})
	}

	return NewWithAPIClient(apiClient, logger, tracer)
}

// NewWithAPIClient creates a new Shippo client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(aggregatorName)
	}
	return &Client{
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the aggregator name.
func (c *Client) Name() string {
	return aggregatorName
}

// CreateShipment creates a shipment and returns its candidate rates.
func (c *Client) CreateShipment(ctx context.Context, req *shipping.RateRequest) (*shipping.Quote, error) {
	ctx, span := c.tracer.Start(ctx, "shippo.CreateShipment")
	defer span.End()

	c.logger.Ctx(ctx).Info("Creating Shippo shipment",
		zap.String("origin_city", req.Origin.City),
		zap.String("destination_city", req.Destination.City),
	)

	apiResp, err := c.apiClient.CreateShipment(ctx, &ShipmentRequest{
		AddressFrom: addressToAPI(req.Origin),
		AddressTo:   addressToAPI(req.Destination),
		Parcels:     []Parcel{parcelToAPI(req.Parcel)},
		Async:       false,
	})
	if err != nil {
		return nil, c.fail(ctx, span, "shipment", err)
	}

	quote, err := shipmentResponseToQuote(apiResp)
	if err != nil {
		return nil, c.fail(ctx, span, "shipment", err)
	}

	span.SetAttributes(
		attribute.String("shippo.shipment_id", quote.ShipmentID),
		attribute.Int("shippo.rate_count", len(quote.Rates)),
	)
	return quote, nil
}

// CreateTransaction purchases a label against a rate.
func (c *Client) CreateTransaction(ctx context.Context, req *shipping.PurchaseRequest) (*shipping.LabelResult, error) {
	ctx, span := c.tracer.Start(ctx, "shippo.CreateTransaction",
		trace.WithAttributes(attribute.String("shippo.rate_id", req.RateID)),
	)
	defer span.End()

	c.logger.Ctx(ctx).Info("Creating Shippo transaction",
		zap.String("rate_id", req.RateID),
		zap.Bool("insured", req.Insurance != nil),
	)

	apiReq := &TransactionRequest{
		Rate:  req.RateID,
		Async: false,
	}
	if req.Insurance != nil {
		apiReq.Extra = &TransactionExtra{
			Insurance: &Insurance{
				Amount:   req.Insurance.Amount,
				Currency: req.Insurance.Currency,
			},
		}
	}

	apiResp, err := c.apiClient.CreateTransaction(ctx, apiReq)
	if err != nil {
		return nil, c.fail(ctx, span, "transaction", err)
	}

	span.SetAttributes(attribute.String("shippo.transaction_id", apiResp.ObjectID))
	return transactionResponseToLabel(apiResp), nil
}

// GetTracking looks up a shipment by carrier and tracking number.
func (c *Client) GetTracking(ctx context.Context, carrier, trackingNumber string) (*shipping.TrackingInfo, error) {
	ctx, span := c.tracer.Start(ctx, "shippo.GetTrack",
		trace.WithAttributes(
			attribute.String("shippo.carrier", carrier),
			attribute.String("shippo.tracking_number", trackingNumber),
		),
	)
	defer span.End()

	apiResp, err := c.apiClient.GetTrack(ctx, carrier, trackingNumber)
	if err != nil {
		return nil, c.fail(ctx, span, "track", err)
	}

	info, err := trackResponseToInfo(apiResp)
	if err != nil {
		return nil, c.fail(ctx, span, "track", err)
	}
	return info, nil
}

// fail records err on the span, logs it and converts API errors.
func (c *Client) fail(ctx context.Context, span trace.Span, op string, err error) error {
	err = toAggregatorError(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	c.logger.Ctx(ctx).Error("Shippo API error", zap.String("operation", op), zap.Error(err))
	return err
}

func toAggregatorError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	return shipping.NewAggregatorError(aggregatorName, fmt.Sprintf("HTTP_%d", apiErr.StatusCode), apiErr.Message).
		WithStatusCode(apiErr.StatusCode)
}

// ============================================================================
// Conversion helpers: domain models -> API models
// ============================================================================

func addressToAPI(addr shipping.Address) Address {
	return Address{
		Name:    addr.Name,
		Street1: addr.Street1,
		Street2: addr.Street2,
		City:    addr.City,
		State:   addr.State,
		Zip:     addr.Zip,
		Country: addr.Country,
		Phone:   addr.Phone,
		Email:   addr.Email,
	}
}

func parcelToAPI(p shipping.Parcel) Parcel {
	return Parcel{
		Length:       decimal.NewFromFloat(p.Length).String(),
		Width:        decimal.NewFromFloat(p.Width).String(),
		Height:       decimal.NewFromFloat(p.Height).String(),
		DistanceUnit: string(p.DistanceUnit),
		Weight:       decimal.NewFromFloat(p.Weight).String(),
		MassUnit:     string(p.MassUnit),
	}
}

// ============================================================================
// Conversion helpers: API models -> domain models
// ============================================================================

func shipmentResponseToQuote(resp *ShipmentResponse) (*shipping.Quote, error) {
	rates := make([]shipping.Rate, len(resp.Rates))
	for i, r := range resp.Rates {
		amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
		if err != nil {
			return nil, fmt.Errorf("%w: rate %s amount %q", shipping.ErrMalformedResponse, r.ObjectID, r.Amount)
		}

		var days int
		if r.EstimatedDays != nil {
			days = *r.EstimatedDays
		}

		rates[i] = shipping.Rate{
			ID:                r.ObjectID,
			Amount:            amount,
			Currency:          r.Currency,
			Provider:          r.Provider,
			ServiceLevelName:  r.ServiceLevel.Name,
			ServiceLevelToken: r.ServiceLevel.Token,
			EstimatedDays:     days,
			DurationTerms:     r.DurationTerms,
		}
	}

	return &shipping.Quote{
		ShipmentID: resp.ObjectID,
		Rates:      rates,
	}, nil
}

func transactionResponseToLabel(resp *TransactionResponse) *shipping.LabelResult {
	return &shipping.LabelResult{
		TransactionID:        resp.ObjectID,
		ObjectState:          resp.ObjectState,
		LabelURL:             resp.LabelURL,
		TrackingNumber:       resp.TrackingNumber,
		Carrier:              resp.Rate.Provider,
		ServiceLevel:         resp.Rate.ServiceLevel.Name,
		Cost:                 resp.Rate.Amount,
		Currency:             resp.Rate.Currency,
		CommercialInvoiceURL: resp.CommercialInvoiceURL,
	}
}

func trackResponseToInfo(resp *TrackResponse) (*shipping.TrackingInfo, error) {
	events := make([]shipping.TrackingEvent, len(resp.TrackingHistory))
	for i, h := range resp.TrackingHistory {
		ts, err := parseTime(h.ObjectCreated)
		if err != nil {
			return nil, fmt.Errorf("%w: tracking event timestamp %q", shipping.ErrMalformedResponse, h.ObjectCreated)
		}
		events[i] = shipping.TrackingEvent{
			Status:        h.Status,
			StatusDetails: h.StatusDetails,
			Location:      formatLocation(h.Location),
			Timestamp:     ts,
		}
	}

	var eta *time.Time
	if resp.ETA != "" {
		t, err := parseTime(resp.ETA)
		if err != nil {
			return nil, fmt.Errorf("%w: eta %q", shipping.ErrMalformedResponse, resp.ETA)
		}
		eta = &t
	}

	var status string
	if resp.TrackingStatus != nil {
		status = resp.TrackingStatus.Status
	}

	return &shipping.TrackingInfo{
		Carrier:        resp.Carrier,
		TrackingNumber: resp.TrackingNumber,
		Status:         status,
		Events:         events,
		ETA:            eta,
	}, nil
}

// formatLocation joins city and state, skipping empty parts.
func formatLocation(loc *TrackLocation) string {
	if loc == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{loc.City, loc.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
