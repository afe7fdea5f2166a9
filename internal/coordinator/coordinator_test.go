package coordinator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/tradepost/internal/coordinator"
	"github.com/tournevent/tradepost/internal/ledger"
	"github.com/tournevent/tradepost/internal/lock"
	"github.com/tournevent/tradepost/internal/telemetry"
	"github.com/tournevent/tradepost/internal/trade"
	"github.com/tournevent/tradepost/pkg/shipping"
	"github.com/tournevent/tradepost/pkg/shipping/mock"
)

const (
	tradeID   int64 = 100
	offering  int64 = 1
	receiving int64 = 2
	stranger  int64 = 3
)

type fixture struct {
	agg       *mock.Aggregator
	trades    *trade.MemoryStore
	locker    lock.Locker
	ledger    ledger.Ledger
	publisher *recordingPublisher
	metrics   *telemetry.Metrics
	coord     *coordinator.Coordinator
}

type option func(*fixture)

func withLocker(l lock.Locker) option  { return func(f *fixture) { f.locker = l } }
func withLedger(l ledger.Ledger) option { return func(f *fixture) { f.ledger = l } }

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	f := &fixture{
		agg:       mock.New("shippo"),
		trades:    trade.NewMemoryStore(trade.Record{ID: tradeID, OfferingPartyID: offering, ReceivingPartyID: receiving}),
		locker:    lock.NewMemoryLocker(time.Minute),
		ledger:    ledger.NewMemoryLedger(),
		publisher: &recordingPublisher{},
		metrics:   telemetry.NewMetrics(prometheus.NewRegistry()),
	}
	for _, o := range opts {
		o(f)
	}
	f.coord = coordinator.New(coordinator.Deps{
		Aggregator: f.agg,
		Trades:     f.trades,
		Locker:     f.locker,
		Ledger:     f.ledger,
		Publisher:  f.publisher,
		Logger:     otelzap.New(zap.NewNop()),
		Metrics:    f.metrics,
		Now:        func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	})
	return f
}

type published struct {
	key    string
	value  any
	ctxErr error
}

type recordingPublisher struct {
	events []published
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, value any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{key: key, value: value, ctxErr: ctx.Err()})
	return nil
}

type failingLedger struct{ ledger.Ledger }

func (failingLedger) Record(context.Context, shipping.LabelRecord) error {
	return errors.New("mongo down")
}

type brokenLocker struct{}

func (brokenLocker) Acquire(context.Context, int64) (func(), error) {
	return nil, errors.New("redis timeout")
}

func rateRequest() *shipping.RateRequest {
	return &shipping.RateRequest{
		Origin:      shipping.Address{Name: "Ada", Street1: "1 Market St", City: "San Francisco", State: "CA", Zip: "94105", Country: "US"},
		Destination: shipping.Address{Name: "Bob", Street1: "500 W 2nd St", City: "Austin", State: "TX", Zip: "78701", Country: "US"},
		Parcel: shipping.Parcel{
			Length: 10, Width: 8, Height: 4, Weight: 2.5,
			DistanceUnit: shipping.DistanceInch,
			MassUnit:     shipping.MassPound,
		},
	}
}

func labelRequest() *shipping.LabelRequest {
	r := rateRequest()
	return &shipping.LabelRequest{
		TradeID:     tradeID,
		Origin:      r.Origin,
		Destination: r.Destination,
		Parcel:      r.Parcel,
	}
}

func rates(amounts ...string) []shipping.Rate {
	out := make([]shipping.Rate, len(amounts))
	for i, a := range amounts {
		out[i] = shipping.Rate{
			ID:                "rate-" + string(rune('a'+i)),
			Amount:            decimal.RequireFromString(a),
			Currency:          "USD",
			ServiceLevelToken: "token-" + string(rune('a'+i)),
		}
	}
	return out
}

func (f *fixture) quoting(rs []shipping.Rate) {
	f.agg.OnCreateShipment = func(ctx context.Context, req *shipping.RateRequest) (*shipping.Quote, error) {
		return &shipping.Quote{ShipmentID: "shp_1", Rates: rs}, nil
	}
}

func TestGetRates_Success(t *testing.T) {
	f := newFixture(t)
	f.quoting(rates("12.50", "9.99"))

	quote, err := f.coord.GetRates(context.Background(), rateRequest())

	require.NoError(t, err)
	assert.Equal(t, "shp_1", quote.ShipmentID)
	require.Len(t, quote.Rates, 2)
	assert.Equal(t, 12.5, quote.Rates[0].Amount.InexactFloat64())
	assert.Equal(t, 9.99, quote.Rates[1].Amount.InexactFloat64())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("get_rates", "shippo", "success")))
}

func TestGetRates_ValidationBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	req := rateRequest()
	req.Parcel.Weight = 1000

	_, err := f.coord.GetRates(context.Background(), req)

	assert.ErrorIs(t, err, shipping.ErrValidation)
	assert.Equal(t, 0, f.agg.Calls())
}

func TestGetRates_AggregatorFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"http error", shipping.NewAggregatorError("shippo", "HTTP_400", "Invalid address").WithStatusCode(400)},
		{"network error", errors.New("dial tcp: connection refused")},
		{"malformed", shipping.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.agg.OnCreateShipment = func(ctx context.Context, req *shipping.RateRequest) (*shipping.Quote, error) {
				return nil, tt.err
			}

			_, err := f.coord.GetRates(context.Background(), rateRequest())

			require.Error(t, err)
			assert.ErrorIs(t, err, shipping.ErrRateRetrievalFailed)
			var e *shipping.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, "rate retrieval failed", e.Message)
			assert.False(t, e.Upstream)
			assert.Equal(t, 1, f.agg.ShipmentCalls(), "no retry")
		})
	}
}

func TestCreateLabel_SelectsCheapest(t *testing.T) {
	orders := [][]string{
		{"15.00", "9.99", "12.00"},
		{"9.99", "15.00", "12.00"},
		{"12.00", "15.00", "9.99"},
	}

	for _, amounts := range orders {
		f := newFixture(t)
		rs := rates(amounts...)
		f.quoting(rs)

		var want string
		for _, r := range rs {
			if r.Amount.Equal(decimal.RequireFromString("9.99")) {
				want = r.ID
			}
		}

		_, err := f.coord.CreateLabel(context.Background(), offering, labelRequest())
		require.NoError(t, err)
		assert.Equal(t, want, f.agg.LastTransaction().RateID)
	}
}

func TestCreateLabel_TieSelectsFirst(t *testing.T) {
	f := newFixture(t)
	f.quoting(rates("7.50", "7.50", "7.50"))

	_, err := f.coord.CreateLabel(context.Background(), receiving, labelRequest())

	require.NoError(t, err)
	assert.Equal(t, "rate-a", f.agg.LastTransaction().RateID)
}

func TestCreateLabel_ServiceLevelToken(t *testing.T) {
	f := newFixture(t)
	f.quoting(rates("5.00", "11.00", "8.00"))
	req := labelRequest()
	req.ServiceLevel = "token-b"

	_, err := f.coord.CreateLabel(context.Background(), offering, req)

	require.NoError(t, err)
	assert.Equal(t, "rate-b", f.agg.LastTransaction().RateID)
}

func TestCreateLabel_UnknownTokenNoTransaction(t *testing.T) {
	f := newFixture(t)
	f.quoting(rates("5.00", "11.00"))
	req := labelRequest()
	req.ServiceLevel = "usps_priority"

	_, err := f.coord.CreateLabel(context.Background(), offering, req)

	assert.ErrorIs(t, err, shipping.ErrNoValidRate)
	assert.Equal(t, 0, f.agg.TransactionCalls())
}

func TestCreateLabel_NoRates(t *testing.T) {
	f := newFixture(t)
	f.quoting(nil)

	_, err := f.coord.CreateLabel(context.Background(), offering, labelRequest())

	assert.ErrorIs(t, err, shipping.ErrNoValidRate)
	assert.Equal(t, 0, f.agg.TransactionCalls())
}

func TestCreateLabel_Insurance(t *testing.T) {
	yes := true
	amount := 40.0

	tests := []struct {
		name   string
		flag   *bool
		amount *float64
		want   *shipping.Insurance
	}{
		{"both", &yes, &amount, &shipping.Insurance{Amount: "40.00", Currency: "USD"}},
		{"flag only", &yes, nil, nil},
		{"amount only", nil, &amount, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := labelRequest()
			req.IncludeInsurance = tt.flag
			req.InsuranceAmount = tt.amount

			_, err := f.coord.CreateLabel(context.Background(), offering, req)

			require.NoError(t, err)
			assert.Equal(t, tt.want, f.agg.LastTransaction().Insurance)
		})
	}
}

func TestCreateLabel_Unauthorized(t *testing.T) {
	tests := []struct {
		name     string
		callerID int64
		tradeID  int64
	}{
		{"not a party", stranger, tradeID},
		{"unknown trade", offering, 999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := labelRequest()
			req.TradeID = tt.tradeID

			_, err := f.coord.CreateLabel(context.Background(), tt.callerID, req)

			assert.ErrorIs(t, err, shipping.ErrUnauthorizedOrNotFound)
			assert.Equal(t, 0, f.agg.Calls())
		})
	}
}

func TestCreateLabel_ValidationBeforeLookup(t *testing.T) {
	f := newFixture(t)
	req := labelRequest()
	req.TradeID = 0

	_, err := f.coord.CreateLabel(context.Background(), offering, req)

	assert.ErrorIs(t, err, shipping.ErrValidation)
	assert.Equal(t, 0, f.agg.Calls())
}

func TestCreateLabel_LockHeld(t *testing.T) {
	locker := lock.NewMemoryLocker(time.Minute)
	f := newFixture(t, withLocker(locker))

	release, err := locker.Acquire(context.Background(), tradeID)
	require.NoError(t, err)
	defer release()

	_, err = f.coord.CreateLabel(context.Background(), offering, labelRequest())

	assert.ErrorIs(t, err, shipping.ErrLabelInProgress)
	assert.Equal(t, 0, f.agg.Calls())
}

func TestCreateLabel_ReleasesLock(t *testing.T) {
	locker := lock.NewMemoryLocker(time.Minute)
	f := newFixture(t, withLocker(locker))
	f.agg.OnCreateTransaction = func(ctx context.Context, req *shipping.PurchaseRequest) (*shipping.LabelResult, error) {
		return nil, errors.New("boom")
	}

	_, err := f.coord.CreateLabel(context.Background(), offering, labelRequest())
	require.Error(t, err)

	release, err := locker.Acquire(context.Background(), tradeID)
	require.NoError(t, err, "lock released after a failed purchase")
	release()
}

func TestCreateLabel_LockBackendFailure(t *testing.T) {
	f := newFixture(t, withLocker(brokenLocker{}))

	_, err := f.coord.CreateLabel(context.Background(), offering, labelRequest())

	assert.ErrorIs(t, err, shipping.ErrLabelPurchaseFailed)
	assert.Equal(t, 0, f.agg.Calls())
}

func TestCreateLabel_AggregatorErrors(t *testing.T) {
	upstream := shipping.NewAggregatorError("shippo", "HTTP_400", "Rate expired").WithStatusCode(400)

	tests := []struct {
		name         string
		shipmentErr  error
		txErr        error
		wantMessage  string
		wantUpstream bool
	}{
		{"transaction http error", nil, upstream, "Rate expired", true},
		{"transaction unexpected", nil, errors.New("EOF"), "label creation failed", false},
		{"shipment http error", upstream, nil, "Rate expired", true},
		{"shipment unexpected", shipping.ErrMalformedResponse, nil, "label creation failed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.shipmentErr != nil {
				f.agg.OnCreateShipment = func(ctx context.Context, req *shipping.RateRequest) (*shipping.Quote, error) {
					return nil, tt.shipmentErr
				}
			}
			if tt.txErr != nil {
				f.agg.OnCreateTransaction = func(ctx context.Context, req *shipping.PurchaseRequest) (*shipping.LabelResult, error) {
					return nil, tt.txErr
				}
			}

			_, err := f.coord.CreateLabel(context.Background(), offering, labelRequest())

			var e *shipping.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, shipping.KindLabelPurchaseFailed, e.Kind)
			assert.Equal(t, tt.wantMessage, e.Message)
			assert.Equal(t, tt.wantUpstream, e.Upstream)
			assert.LessOrEqual(t, f.agg.TransactionCalls(), 1, "no retry")
		})
	}
}

func TestCreateLabel_RecordsAndPublishes(t *testing.T) {
	f := newFixture(t)

	label, err := f.coord.CreateLabel(context.Background(), receiving, labelRequest())
	require.NoError(t, err)

	recs, err := f.ledger.ListByTrade(context.Background(), tradeID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, label.TransactionID, recs[0].TransactionID)
	assert.Equal(t, receiving, recs[0].CallerID)
	assert.Equal(t, label.Cost, recs[0].Cost)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "100", f.publisher.events[0].key)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LabelsPurchased.WithLabelValues(label.Carrier)))
}

func TestCreateLabel_RecordsAfterCallerCancels(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.agg.OnCreateTransaction = func(ctx context.Context, req *shipping.PurchaseRequest) (*shipping.LabelResult, error) {
		cancel()
		return &shipping.LabelResult{
			TransactionID:  "txn_paid",
			ObjectState:    "VALID",
			TrackingNumber: "9400100",
			Carrier:        "USPS",
			Cost:           "8.40",
			Currency:       "USD",
		}, nil
	}

	label, err := f.coord.CreateLabel(ctx, offering, labelRequest())
	require.NoError(t, err)
	assert.Equal(t, "txn_paid", label.TransactionID)

	recs, err := f.ledger.ListByTrade(context.Background(), tradeID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "txn_paid", recs[0].TransactionID)

	require.Len(t, f.publisher.events, 1)
	assert.NoError(t, f.publisher.events[0].ctxErr)
}

func TestCreateLabel_SideEffectFailuresAreNonFatal(t *testing.T) {
	f := newFixture(t, withLedger(failingLedger{ledger.NewMemoryLedger()}))
	f.publisher.err = errors.New("kafka down")

	label, err := f.coord.CreateLabel(context.Background(), offering, labelRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, label.TransactionID)
}

func TestGetTracking_Success(t *testing.T) {
	f := newFixture(t)

	info, err := f.coord.GetTracking(context.Background(), "usps", "9400")

	require.NoError(t, err)
	assert.Equal(t, "usps", info.Carrier)
	assert.Equal(t, "9400", info.TrackingNumber)
}

func TestGetTracking_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.GetTracking(context.Background(), " ", "")

	require.ErrorIs(t, err, shipping.ErrValidation)
	assert.Contains(t, err.Error(), "carrier is required")
	assert.Contains(t, err.Error(), "tracking_number is required")
	assert.Equal(t, 0, f.agg.TrackingCalls())
}

func TestGetTracking_Errors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantKind     shipping.Kind
		wantMessage  string
		wantUpstream bool
	}{
		{
			"not found",
			shipping.NewAggregatorError("shippo", "HTTP_404", "Not found.").WithStatusCode(404),
			shipping.KindTrackingNotFound, "tracking not found", false,
		},
		{
			"server error with message",
			shipping.NewAggregatorError("shippo", "HTTP_500", "carrier unavailable").WithStatusCode(500),
			shipping.KindTrackingRetrievalFailed, "carrier unavailable", true,
		},
		{
			"unexpected",
			errors.New("context deadline exceeded"),
			shipping.KindTrackingRetrievalFailed, "tracking retrieval failed", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.agg.OnGetTracking = func(ctx context.Context, carrier, trackingNumber string) (*shipping.TrackingInfo, error) {
				return nil, tt.err
			}

			_, err := f.coord.GetTracking(context.Background(), "usps", "9400")

			var e *shipping.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantMessage, e.Message)
			assert.Equal(t, tt.wantUpstream, e.Upstream)
		})
	}
}

func TestListLabels(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.CreateLabel(context.Background(), offering, labelRequest())
	require.NoError(t, err)

	labels, err := f.coord.ListLabels(context.Background(), receiving, tradeID)
	require.NoError(t, err)
	assert.Len(t, labels, 1)

	_, err = f.coord.ListLabels(context.Background(), stranger, tradeID)
	assert.ErrorIs(t, err, shipping.ErrUnauthorizedOrNotFound)

	_, err = f.coord.ListLabels(context.Background(), offering, 0)
	assert.ErrorIs(t, err, shipping.ErrValidation)
}
