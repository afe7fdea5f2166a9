// Package coordinator implements the shipping workflow of the marketplace:
// quoting rates, purchasing labels for trades and reading tracking state.
package coordinator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/tournevent/tradepost/internal/events"
	"github.com/tournevent/tradepost/internal/ledger"
	"github.com/tournevent/tradepost/internal/lock"
	"github.com/tournevent/tradepost/internal/telemetry"
	"github.com/tournevent/tradepost/internal/trade"
	"github.com/tournevent/tradepost/pkg/shipping"
)

// Deps are the collaborators of a Coordinator. Aggregator, Trades, Locker
// and Logger are required; the rest fall back to no-op implementations.
type Deps struct {
	Aggregator shipping.Aggregator
	Trades     trade.Store
	Locker     lock.Locker
	Ledger     ledger.Ledger
	Publisher  events.Publisher
	Validator  *shipping.Validator
	Logger     *otelzap.Logger
	Metrics    *telemetry.Metrics
	Tracer     trace.Tracer
	Now        func() time.Time
}

// Coordinator runs the shipping operations against one aggregator.
type Coordinator struct {
	aggregator shipping.Aggregator
	trades     trade.Store
	locker     lock.Locker
	ledger     ledger.Ledger
	publisher  events.Publisher
	validator  *shipping.Validator
	logger     *otelzap.Logger
	metrics    *telemetry.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

// New creates a Coordinator.
func New(d Deps) *Coordinator {
	c := &Coordinator{
		aggregator: d.Aggregator,
		trades:     d.Trades,
		locker:     d.Locker,
		ledger:     d.Ledger,
		publisher:  d.Publisher,
		validator:  d.Validator,
		logger:     d.Logger,
		metrics:    d.Metrics,
		tracer:     d.Tracer,
		now:        d.Now,
	}
	if c.ledger == nil {
		c.ledger = ledger.NewMemoryLedger()
	}
	if c.publisher == nil {
		c.publisher = events.NopPublisher{}
	}
	if c.validator == nil {
		c.validator = shipping.NewValidator()
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("coordinator")
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// GetRates returns every candidate rate for the shipment, in aggregator order.
func (c *Coordinator) GetRates(ctx context.Context, req *shipping.RateRequest) (quote *shipping.Quote, err error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.GetRates")
	defer c.finish(span, "get_rates", time.Now(), &err)

	if err := c.validator.Validate(req); err != nil {
		return nil, err
	}

	quote, err = c.aggregator.CreateShipment(ctx, req)
	if err != nil {
		c.logger.Ctx(ctx).Error("Rate retrieval failed", zap.Error(err))
		return nil, shipping.NewError(shipping.KindRateRetrievalFailed, "rate retrieval failed").WithCause(err)
	}

	span.SetAttributes(attribute.Int("rates.count", len(quote.Rates)))
	return quote, nil
}

// CreateLabel purchases a label for a trade the caller is a party to.
func (c *Coordinator) CreateLabel(ctx context.Context, callerID int64, req *shipping.LabelRequest) (label *shipping.LabelResult, err error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.CreateLabel",
		trace.WithAttributes(attribute.Int64("trade.id", req.TradeID)),
	)
	defer c.finish(span, "create_label", time.Now(), &err)

	if err := c.validator.Validate(req); err != nil {
		return nil, err
	}

	log := c.logger.WithOptions(zap.Fields(zap.Int64("trade_id", req.TradeID), zap.Int64("caller_id", callerID))).Ctx(ctx)

	if err := c.authorize(ctx, callerID, req.TradeID); err != nil {
		log.Warn("Label purchase rejected", zap.Error(err))
		return nil, err
	}

	release, err := c.locker.Acquire(ctx, req.TradeID)
	if errors.Is(err, lock.ErrHeld) {
		log.Warn("Label purchase already in progress")
		return nil, shipping.NewError(shipping.KindLabelInProgress, shipping.ErrLabelInProgress.Message)
	}
	if err != nil {
		log.Error("Acquiring trade lock failed", zap.Error(err))
		return nil, shipping.NewError(shipping.KindLabelPurchaseFailed, "label creation failed").WithCause(err)
	}
	defer release()

	quote, err := c.aggregator.CreateShipment(ctx, req.RateRequest())
	if err != nil {
		log.Error("Shipment creation failed", zap.Error(err))
		return nil, labelError(err)
	}

	rate, ok := shipping.SelectRate(quote.Rates, req.ServiceLevel)
	if !ok {
		log.Warn("No valid rate",
			zap.String("service_level", req.ServiceLevel),
			zap.Int("candidates", len(quote.Rates)),
		)
		return nil, shipping.NewError(shipping.KindNoValidRate, "no valid rate")
	}
	span.SetAttributes(
		attribute.String("rate.id", rate.ID),
		attribute.String("rate.amount", rate.Amount.String()),
	)

	label, err = c.aggregator.CreateTransaction(ctx, &shipping.PurchaseRequest{
		RateID:    rate.ID,
		Insurance: req.Insurance(),
	})
	if err != nil {
		log.Error("Label purchase failed", zap.String("rate_id", rate.ID), zap.Error(err))
		return nil, labelError(err)
	}

	log.Info("Label purchased",
		zap.String("transaction_id", label.TransactionID),
		zap.String("tracking_number", label.TrackingNumber),
		zap.String("carrier", label.Carrier),
		zap.String("cost", label.Cost),
	)
	if c.metrics != nil {
		c.metrics.RecordLabel(label.Carrier)
	}

	c.recordLabel(ctx, log, callerID, req.TradeID, label)
	return label, nil
}

// GetTracking returns the tracking state of a shipment.
func (c *Coordinator) GetTracking(ctx context.Context, carrier, trackingNumber string) (info *shipping.TrackingInfo, err error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.GetTracking",
		trace.WithAttributes(
			attribute.String("tracking.carrier", carrier),
			attribute.String("tracking.number", trackingNumber),
		),
	)
	defer c.finish(span, "get_tracking", time.Now(), &err)

	carrier, trackingNumber = strings.TrimSpace(carrier), strings.TrimSpace(trackingNumber)
	var missing []string
	if carrier == "" {
		missing = append(missing, "carrier is required")
	}
	if trackingNumber == "" {
		missing = append(missing, "tracking_number is required")
	}
	if len(missing) > 0 {
		return nil, shipping.NewError(shipping.KindValidation, strings.Join(missing, "; "))
	}

	info, err = c.aggregator.GetTracking(ctx, carrier, trackingNumber)
	if err == nil {
		return info, nil
	}

	log := c.logger.WithOptions(zap.Fields(zap.String("carrier", carrier), zap.String("tracking_number", trackingNumber))).Ctx(ctx)

	var aggErr *shipping.AggregatorError
	switch {
	case errors.As(err, &aggErr) && aggErr.NotFound():
		log.Warn("Tracking not found", zap.Error(err))
		return nil, shipping.NewError(shipping.KindTrackingNotFound, "tracking not found").WithCause(err)
	case errors.As(err, &aggErr):
		log.Error("Tracking retrieval failed", zap.Error(err))
		e := shipping.NewError(shipping.KindTrackingRetrievalFailed, upstreamMessage(aggErr, "tracking retrieval failed")).WithCause(err)
		e.Upstream = true
		return nil, e
	default:
		log.Error("Tracking retrieval failed", zap.Error(err))
		return nil, shipping.NewError(shipping.KindTrackingRetrievalFailed, "tracking retrieval failed").WithCause(err)
	}
}

// ListLabels returns the labels purchased for a trade the caller is a party to.
func (c *Coordinator) ListLabels(ctx context.Context, callerID, tradeID int64) (labels []shipping.LabelRecord, err error) {
	ctx, span := c.tracer.Start(ctx, "coordinator.ListLabels",
		trace.WithAttributes(attribute.Int64("trade.id", tradeID)),
	)
	defer c.finish(span, "list_labels", time.Now(), &err)

	if tradeID <= 0 {
		return nil, shipping.NewError(shipping.KindValidation, "trade_id must be greater than 0")
	}
	if err := c.authorize(ctx, callerID, tradeID); err != nil {
		return nil, err
	}

	labels, err = c.ledger.ListByTrade(ctx, tradeID)
	if err != nil {
		c.logger.Ctx(ctx).Error("Listing labels failed", zap.Int64("trade_id", tradeID), zap.Error(err))
		return nil, shipping.NewError(shipping.KindLabelPurchaseFailed, "listing labels failed").WithCause(err)
	}
	return labels, nil
}

// authorize fails with UnauthorizedOrNotFound unless callerID is a party to the trade.
func (c *Coordinator) authorize(ctx context.Context, callerID, tradeID int64) error {
	rec, err := c.trades.FindByID(ctx, tradeID)
	if err != nil {
		return shipping.NewError(shipping.KindUnauthorizedOrNotFound, "trade not found").WithCause(err)
	}
	if !rec.Involves(callerID) {
		return shipping.NewError(shipping.KindUnauthorizedOrNotFound, "trade not found")
	}
	return nil
}

// recordLabel writes the ledger entry and the purchase event. Failures are
// logged and never fail the purchase.
func (c *Coordinator) recordLabel(ctx context.Context, log otelzap.LoggerWithCtx, callerID, tradeID int64, label *shipping.LabelResult) {
	// Detached from the request context.
	ctx = context.WithoutCancel(ctx)

	rec := shipping.LabelRecord{
		TradeID:        tradeID,
		CallerID:       callerID,
		TransactionID:  label.TransactionID,
		TrackingNumber: label.TrackingNumber,
		Carrier:        label.Carrier,
		ServiceLevel:   label.ServiceLevel,
		Cost:           label.Cost,
		Currency:       label.Currency,
		LabelURL:       label.LabelURL,
		CreatedAt:      c.now().UTC(),
	}

	if err := c.ledger.Record(ctx, rec); err != nil {
		log.Warn("Recording label failed", zap.String("transaction_id", label.TransactionID), zap.Error(err))
	}

	ev := events.NewLabelPurchased(rec)
	if err := c.publisher.Publish(ctx, ev.Key(), ev); err != nil {
		log.Warn("Publishing label event failed", zap.String("transaction_id", label.TransactionID), zap.Error(err))
	}
}

// finish ends the span and records the request metrics of an operation.
func (c *Coordinator) finish(span trace.Span, operation string, start time.Time, errp *error) {
	status := "success"
	if err := *errp; err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, string(shipping.KindOf(err)))
		if c.metrics != nil {
			c.metrics.RecordError(c.aggregator.Name(), string(shipping.KindOf(err)))
		}
	}
	if c.metrics != nil {
		c.metrics.RecordRequest(operation, c.aggregator.Name(), status, time.Since(start).Seconds())
	}
	span.End()
}

// labelError maps a shipment or transaction failure during label purchase.
func labelError(err error) error {
	var aggErr *shipping.AggregatorError
	if errors.As(err, &aggErr) {
		e := shipping.NewError(shipping.KindLabelPurchaseFailed, upstreamMessage(aggErr, "label creation failed")).WithCause(err)
		e.Upstream = true
		return e
	}
	return shipping.NewError(shipping.KindLabelPurchaseFailed, "label creation failed").WithCause(err)
}

func upstreamMessage(e *shipping.AggregatorError, fallback string) string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return fallback
}
