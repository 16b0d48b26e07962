// Package mongo stores invoices in MongoDB.
//
// Collections: invoices (headers), invoice_items (one document per line,
// keyed by invoiceId) and counters (one document per numbering scope).
// Multi-document transactions need a replica set or sharded cluster.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"invoicebook/pkg/logger"
)

const (
	headersCollection  = "invoices"
	itemsCollection    = "invoice_items"
	countersCollection = "counters"

	// listIndexName is the index the sorted list query is pinned to.
	listIndexName   = "userId_1_createdAt_-1"
	numberIndexName = "userId_1_invoiceNumber_1"
	itemsIndexName  = "invoiceId_1_position_1"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI      string
	Database string

	// MaxAttempts bounds transaction re-runs on transient errors (default 5).
	MaxAttempts int

	ConnectTimeout time.Duration
}

// Client wraps mongo.Client bound to one database.
type Client struct {
	*mongo.Client
	db          *mongo.Database
	maxAttempts int
}

// Connect opens a client and verifies the primary is reachable.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, fmt.Errorf("mongo: uri and database are required")
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	logger.Info(ctx, "mongo client connected",
		"database", cfg.Database,
		"max_attempts", maxAttempts)

	return &Client{
		Client:      client,
		db:          client.Database(cfg.Database),
		maxAttempts: maxAttempts,
	}, nil
}

// Ping checks the primary.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx, readpref.Primary()); err != nil {
		return mapError(err)
	}
	return nil
}

// Close disconnects the client.
func (c *Client) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Disconnect(ctx); err != nil {
		logger.Warn(ctx, "mongo disconnect failed", "error", err)
	}
}

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	headerIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName(listIndexName),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "invoiceNumber", Value: 1}},
			Options: options.Index().SetName(numberIndexName),
		},
	}
	if _, err := c.headers().Indexes().CreateMany(ctx, headerIndexes); err != nil {
		return fmt.Errorf("mongo: create invoice indexes: %w", err)
	}

	itemIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "invoiceId", Value: 1}, {Key: "position", Value: 1}},
		Options: options.Index().SetName(itemsIndexName),
	}
	if _, err := c.items().Indexes().CreateOne(ctx, itemIndex); err != nil {
		return fmt.Errorf("mongo: create item index: %w", err)
	}

	logger.Info(ctx, "mongo indexes ensured")
	return nil
}

func (c *Client) headers() *mongo.Collection { return c.db.Collection(headersCollection) }
func (c *Client) items() *mongo.Collection { return c.db.Collection(itemsCollection) }
func (c *Client) counters() *mongo.Collection { return c.db.Collection(countersCollection) }
