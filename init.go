package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tournevent/tradepost/internal/config"
	"github.com/tournevent/tradepost/internal/coordinator"
	"github.com/tournevent/tradepost/internal/events"
	"github.com/tournevent/tradepost/internal/ledger"
	"github.com/tournevent/tradepost/internal/lock"
	"github.com/tournevent/tradepost/internal/server"
	"github.com/tournevent/tradepost/internal/telemetry"
	"github.com/tournevent/tradepost/internal/trade"
	"github.com/tournevent/tradepost/pkg/shipping/shippo"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	return telemetry.InitTracer(ctx, telemetry.TracerConfig{
		Enabled:     cfg.OTELEnabled,
		Endpoint:    cfg.OTELEndpoint,
		ServiceName: cfg.ServiceName,
		Attributes:  cfg.Attributes(),
	})
}

func initAggregator(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) *shippo.Client {
	if cfg.ShippoAPIKey == "" && !cfg.ShippoUseMock {
		logger.Warn("SHIPPO_API_KEY is not set, aggregator calls will be rejected")
	}
	return shippo.New(shippo.Config{
		APIKey:     cfg.ShippoAPIKey,
		BaseURL:    cfg.ShippoBaseURL,
		AuthScheme: cfg.ShippoAuthScheme,
		Timeout:    cfg.ShippoTimeout,
		UseMock:    cfg.ShippoUseMock,
	}, logger, tracer)
}

// backends holds the optional stores of the service and their readiness checks.
type backends struct {
	trades    trade.Store
	locker    lock.Locker
	ledger    ledger.Ledger
	publisher events.Publisher
	checks    map[string]server.Check
	closers   []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// initBackends connects every configured backend. Unconfigured ones fall
// back to in-memory implementations.
func initBackends(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (*backends, error) {
	b := &backends{checks: map[string]server.Check{}}

	if cfg.DatabaseURL != "" {
		store, err := trade.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.trades = store
		b.checks["postgres"] = store.Ping
		b.closers = append(b.closers, func() { _ = store.Close() })
	} else {
		logger.Warn("DATABASE_URL is not set, using an empty in-memory trade store")
		b.trades = trade.NewMemoryStore()
	}

	if cfg.RedisAddr != "" {
		client, err := lock.Connect(ctx, lock.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		locker := lock.NewRedisLocker(client, cfg.LockTTL)
		b.locker = locker
		b.checks["redis"] = locker.Ping
		b.closers = append(b.closers, func() { _ = client.Close() })
	} else {
		logger.Warn("REDIS_ADDR is not set, label locks are local to this process")
		b.locker = lock.NewMemoryLocker(cfg.LockTTL)
	}

	if cfg.MongoURI != "" {
		client, db, err := ledger.Connect(ctx, ledger.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDB,
			Timeout:  cfg.MongoTimeout,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Disconnect(context.Background()) })
		mongoLedger := ledger.NewMongoLedger(db)
		if err := mongoLedger.EnsureIndexes(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("ensure ledger indexes: %w", err)
		}
		b.ledger = mongoLedger
		b.checks["mongodb"] = mongoLedger.Ping
	} else {
		b.ledger = ledger.NewMemoryLedger()
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		b.publisher = publisher
		b.closers = append(b.closers, func() { _ = publisher.Close() })
	} else {
		b.publisher = events.NopPublisher{}
	}

	logger.Info("Backends initialized",
		zap.Bool("postgres", cfg.DatabaseURL != ""),
		zap.Bool("redis", cfg.RedisAddr != ""),
		zap.Bool("mongodb", cfg.MongoURI != ""),
		zap.Bool("kafka", len(cfg.KafkaBrokers) > 0),
	)
	return b, nil
}

func initCoordinator(cfg *config.Config, b *backends, logger *otelzap.Logger, tracer trace.Tracer) *coordinator.Coordinator {
	return coordinator.New(coordinator.Deps{
		Aggregator: initAggregator(cfg, logger, tracer),
		Trades:     b.trades,
		Locker:     b.locker,
		Ledger:     b.ledger,
		Publisher:  b.publisher,
		Logger:     logger,
		Metrics:    telemetry.NewMetrics(prometheus.DefaultRegisterer),
		Tracer:     tracer,
	})
}
