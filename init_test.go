package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/tradepost/internal/config"
	"github.com/tournevent/tradepost/internal/events"
	"github.com/tournevent/tradepost/internal/ledger"
	"github.com/tournevent/tradepost/internal/lock"
	"github.com/tournevent/tradepost/internal/trade"
)

func TestInitBackends_MemoryFallback(t *testing.T) {
	cfg := &config.Config{LockTTL: time.Minute}

	b, err := initBackends(context.Background(), cfg, otelzap.New(zap.NewNop()))
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &trade.MemoryStore{}, b.trades)
	assert.IsType(t, &lock.MemoryLocker{}, b.locker)
	assert.IsType(t, &ledger.MemoryLedger{}, b.ledger)
	assert.IsType(t, events.NopPublisher{}, b.publisher)
	assert.Empty(t, b.checks)
}

func TestInitBackends_KafkaPublisher(t *testing.T) {
	cfg := &config.Config{
		LockTTL:      time.Minute,
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "tradepost.labels",
	}

	b, err := initBackends(context.Background(), cfg, otelzap.New(zap.NewNop()))
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &events.KafkaPublisher{}, b.publisher)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]string{"carrier": "usps"}))

	var out map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "usps", out["carrier"])
}
