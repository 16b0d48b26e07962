// Package main is the entry point for the invoice API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"invoicebook/internal/bootstrap"
	"invoicebook/internal/config"
	"invoicebook/internal/domain/auth"
	"invoicebook/internal/domain/invoice"
	v1 "invoicebook/internal/infrastructure/http/v1"
	"invoicebook/internal/infrastructure/numerator"
	"invoicebook/pkg/logger"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting invoicebook server", logger.Backend(string(cfg.Backend)), "version", version)

	st, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to open store", logger.Backend(string(cfg.Backend)), logger.Err(err))
	}
	defer st.Close()

	// --- JWT ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer
	jwtService := auth.NewJWTService(jwtConfig)

	// --- Invoices ---
	invoiceService := invoice.NewService(
		st.Invoices,
		numerator.New(st.Counters),
		st.TxManager,
		invoice.WithConfig(cfg.Invoice),
	)

	router := v1.NewRouter(v1.RouterConfig{
		Logger:         log,
		JWTValidator:   jwtService,
		InvoiceService: invoiceService,
		Store:          st.Pinger,
		Backend:        string(cfg.Backend),
		Version:        version,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      gzhttp.GzipHandler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
