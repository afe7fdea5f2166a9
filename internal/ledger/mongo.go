package ledger

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tournevent/tradepost/pkg/shipping"
)

const (
	collectionLabels = "labels"
	defaultTimeout   = 10 * time.Second
)

// MongoConfig captures the settings required to establish a MongoDB connection.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database.
func Connect(ctx context.Context, cfg MongoConfig) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// labelDocument is the stored shape of a shipping.LabelRecord.
type labelDocument struct {
	TradeID        int64     `bson:"trade_id"`
	CallerID       int64     `bson:"caller_id"`
	TransactionID  string    `bson:"transaction_id"`
	TrackingNumber string    `bson:"tracking_number"`
	Carrier        string    `bson:"carrier"`
	ServiceLevel   string    `bson:"service_level"`
	Cost           string    `bson:"cost"`
	Currency       string    `bson:"currency"`
	LabelURL       string    `bson:"label_url"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toDocument(rec shipping.LabelRecord) labelDocument {
	return labelDocument{
		TradeID:        rec.TradeID,
		CallerID:       rec.CallerID,
		TransactionID:  rec.TransactionID,
		TrackingNumber: rec.TrackingNumber,
		Carrier:        rec.Carrier,
		ServiceLevel:   rec.ServiceLevel,
		Cost:           rec.Cost,
		Currency:       rec.Currency,
		LabelURL:       rec.LabelURL,
		CreatedAt:      rec.CreatedAt.UTC(),
	}
}

func (d labelDocument) record() shipping.LabelRecord {
	return shipping.LabelRecord{
		TradeID:        d.TradeID,
		CallerID:       d.CallerID,
		TransactionID:  d.TransactionID,
		TrackingNumber: d.TrackingNumber,
		Carrier:        d.Carrier,
		ServiceLevel:   d.ServiceLevel,
		Cost:           d.Cost,
		Currency:       d.Currency,
		LabelURL:       d.LabelURL,
		CreatedAt:      d.CreatedAt,
	}
}

// MongoLedger implements Ledger on the labels collection.
type MongoLedger struct {
	col *mongo.Collection
}

// NewMongoLedger creates a MongoLedger on db.
func NewMongoLedger(db *mongo.Database) *MongoLedger {
	return &MongoLedger{col: db.Collection(collectionLabels)}
}

// Record inserts a label document.
func (l *MongoLedger) Record(ctx context.Context, rec shipping.LabelRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := l.col.InsertOne(ctx, toDocument(rec)); err != nil {
		return fmt.Errorf("insert label %s: %w", rec.TransactionID, err)
	}
	return nil
}

// ListByTrade returns the trade's labels, newest first.
func (l *MongoLedger) ListByTrade(ctx context.Context, tradeID int64) ([]shipping.LabelRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := l.col.Find(ctx, bson.M{"trade_id": tradeID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find labels for trade %d: %w", tradeID, err)
	}
	defer cur.Close(ctx)

	var docs []labelDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode labels for trade %d: %w", tradeID, err)
	}

	out := make([]shipping.LabelRecord, len(docs))
	for i, d := range docs {
		out[i] = d.record()
	}
	return out, nil
}

// EnsureIndexes creates the indexes the ledger queries rely on.
func (l *MongoLedger) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "trade_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "transaction_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	_, err := l.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// Ping checks the MongoDB connection.
func (l *MongoLedger) Ping(ctx context.Context) error {
	return l.col.Database().Client().Ping(ctx, nil)
}
