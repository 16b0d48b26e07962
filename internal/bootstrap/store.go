// Package bootstrap opens the configured storage backend.
package bootstrap

import (
	"context"
	"fmt"

	"invoicebook/internal/config"
	"invoicebook/internal/core/numerator"
	"invoicebook/internal/core/tx"
	"invoicebook/internal/domain/invoice"
	"invoicebook/internal/infrastructure/http/v1/handlers"
	"invoicebook/internal/infrastructure/storage/firestore"
	"invoicebook/internal/infrastructure/storage/memory"
	"invoicebook/internal/infrastructure/storage/mongo"
	"invoicebook/internal/infrastructure/storage/postgres"
	"invoicebook/pkg/logger"
)

// Store bundles one backend's repositories and transaction manager.
type Store struct {
	Invoices  invoice.Repository
	Counters  numerator.Counter
	TxManager tx.Manager
	Pinger    handlers.Pinger
	Close     func()
}

// OpenStore connects the configured backend and runs its schema step
// (Mongo indexes, Postgres migrations) when enabled.
func OpenStore(ctx context.Context, cfg config.Config, log *logger.Logger) (*Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		s := memory.New(memory.WithMaxAttempts(cfg.TxMaxAttempts))
		log.Warn("using in-memory store; data is lost on restart")
		return &Store{
			Invoices:  memory.NewInvoiceRepo(s),
			Counters:  memory.NewCounterRepo(s),
			TxManager: memory.NewTxManager(s),
			Pinger:    s,
			Close:     s.Close,
		}, nil

	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, firestore.Config{
			ProjectID:       cfg.FirestoreProjectID,
			MaxAttempts:     cfg.TxMaxAttempts,
			CredentialsFile: cfg.FirestoreCredentials,
		})
		if err != nil {
			return nil, err
		}
		return &Store{
			Invoices:  firestore.NewInvoiceRepo(client),
			Counters:  firestore.NewCounterRepo(client),
			TxManager: firestore.NewTxManager(client),
			Pinger:    client,
			Close:     client.Close,
		}, nil

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, mongo.Config{
			URI:         cfg.MongoURI,
			Database:    cfg.MongoDatabase,
			MaxAttempts: cfg.TxMaxAttempts,
		})
		if err != nil {
			return nil, err
		}
		if cfg.MongoEnsureIndexes {
			if err := client.EnsureIndexes(ctx); err != nil {
				client.Close()
				return nil, fmt.Errorf("ensure indexes: %w", err)
			}
		}
		return &Store{
			Invoices:  mongo.NewInvoiceRepo(client),
			Counters:  mongo.NewCounterRepo(client),
			TxManager: mongo.NewTxManager(client),
			Pinger:    client,
			Close:     client.Close,
		}, nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		txOpts := postgres.DefaultTxOptions()
		txOpts.MaxAttempts = cfg.TxMaxAttempts
		txm := postgres.NewTxManager(pool, txOpts)
		return &Store{
			Invoices:  postgres.NewInvoiceRepo(txm),
			Counters:  postgres.NewCounterRepo(txm),
			TxManager: txm,
			Pinger:    pool,
			Close:     pool.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
