// Package firestore stores invoices in Cloud Firestore.
//
// Layout: invoices/{id} headers, invoices/{id}/items/{itemId} line items,
// counters/{scope} numbering counters.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"invoicebook/pkg/logger"
)

const (
	headersCollection  = "invoices"
	itemsCollection    = "items"
	countersCollection = "counters"
)

// Config holds Firestore connection settings.
type Config struct {
	ProjectID string

	// MaxAttempts bounds transaction re-runs on contention (default 5).
	MaxAttempts int

	// CredentialsFile is optional; application default credentials are used otherwise.
	CredentialsFile string
}

// Client wraps firestore.Client with the collections used by the repositories.
type Client struct {
	*firestore.Client
	maxAttempts int
}

// NewClient connects to Firestore.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore: project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	fs, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = firestore.DefaultTransactionMaxAttempts
	}

	logger.Info(ctx, "firestore client created",
		"project_id", cfg.ProjectID,
		"max_attempts", maxAttempts)

	return &Client{Client: fs, maxAttempts: maxAttempts}, nil
}

// Ping reads the counters collection to verify connectivity.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Collection(countersCollection).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Close releases the client.
func (c *Client) Close() {
	if err := c.Client.Close(); err != nil {
		logger.Warn(context.Background(), "firestore client close failed", "error", err)
	}
}

func (c *Client) headers() *firestore.CollectionRef {
	return c.Collection(headersCollection)
}

func (c *Client) items(headerID string) *firestore.CollectionRef {
	return c.headers().Doc(headerID).Collection(itemsCollection)
}

func (c *Client) counter(scope string) *firestore.DocumentRef {
	return c.Collection(countersCollection).Doc(scope)
}
