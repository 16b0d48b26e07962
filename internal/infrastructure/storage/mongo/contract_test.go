package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"invoicebook/internal/infrastructure/storage/storagetest"
)

// TestContract needs a replica set, since transactions are not available on a standalone server.
func TestContract(t *testing.T) {
	uri := os.Getenv("MONGO_URI_TEST")
	if uri == "" {
		t.Skip("MONGO_URI_TEST is not set")
	}
	ctx := context.Background()

	client, err := Connect(ctx, Config{URI: uri, Database: "invoicebook_test", MaxAttempts: 5})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	require.NoError(t, client.EnsureIndexes(ctx))

	storagetest.Run(t, storagetest.Backend{
		Invoices:    NewInvoiceRepo(client),
		Counters:    NewCounterRepo(client),
		TxManager:   NewTxManager(client),
		MaxAttempts: 5,
	})
}
