// Package main provides a CLI for preparing an invoice store.
// Usage: seed counter <last-issued>
//
//	seed peek
//	seed token <user-id> [email]
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"invoicebook/internal/bootstrap"
	"invoicebook/internal/config"
	"invoicebook/internal/domain/auth"
	"invoicebook/internal/infrastructure/numerator"
	"invoicebook/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	log = log.WithComponent("seed")
	ctx := logger.WithLogger(context.Background(), log)

	switch os.Args[1] {
	case "counter":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		value, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalw("counter value must be an integer", "value", os.Args[2])
		}
		if err := setCounter(ctx, cfg, log, value); err != nil {
			log.Fatalw("failed to set counter", "error", err)
		}
	case "peek":
		if err := peekCounter(ctx, cfg, log); err != nil {
			log.Fatalw("failed to read counter", "error", err)
		}
	case "token":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		email := ""
		if len(os.Args) > 3 {
			email = os.Args[3]
		}
		issueToken(cfg, log, os.Args[2], email)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Invoicebook store CLI

Usage:
  seed <command> [args]

Commands:
  counter <n>           Set the last issued invoice number; the next invoice gets n+1
  peek                  Print the last issued value and the next number
  token <user> [email]  Print a signed bearer token for local testing
  help                  Show this help

The store is selected with the same environment as the server
(STORE_BACKEND, DATABASE_URL, MONGO_URI, FIRESTORE_PROJECT_ID, ...).`)
}

// setCounter is used when moving an existing numbering over.
func setCounter(ctx context.Context, cfg config.Config, log *logger.Logger, value int64) error {
	st, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	gen := numerator.New(st.Counters)
	err = st.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return gen.SetNextNumber(ctx, cfg.Invoice.Numbering, value)
	})
	if err != nil {
		return err
	}

	log.Infow("counter updated",
		logger.Backend(string(cfg.Backend)),
		"scope", cfg.Invoice.Numbering.Scope,
		"last_issued", value)
	return nil
}

func peekCounter(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	st, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	var last int64
	err = st.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		last, err = st.Counters.Load(ctx, cfg.Invoice.Numbering.Scope)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("last issued: %d\nnext number: %s\n", last,
		numerator.FormatNumber(cfg.Invoice.Numbering, time.Now(), last+1))
	return nil
}

func issueToken(cfg config.Config, log *logger.Logger, userID, email string) {
	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer

	token, expiresAt, err := auth.NewJWTService(jwtConfig).GenerateAccessToken(userID, email)
	if err != nil {
		log.Fatalw("failed to sign token", "error", err)
	}
	fmt.Printf("%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
}
