// Package config loads server settings from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"invoicebook/internal/core/numerator"
	"invoicebook/internal/domain/invoice"
)

// Backend names a storage implementation.
type Backend string

const (
	BackendMemory    Backend = "memory"
	BackendFirestore Backend = "firestore"
	BackendMongo     Backend = "mongo"
	BackendPostgres  Backend = "postgres"
)

// Config is the full server configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	Backend       Backend
	TxMaxAttempts int

	FirestoreProjectID   string
	FirestoreCredentials string

	MongoURI           string
	MongoDatabase      string
	MongoEnsureIndexes bool

	DatabaseURL string
	DBMigrate   bool

	JWTSecret string
	JWTIssuer string

	Invoice invoice.Config

	ShutdownTimeout time.Duration
}

// Development reports whether logs should be human-readable.
func (c Config) Development() bool {
	return c.Env == "development"
}

// Load reads the environment and validates backend-specific settings.
func Load() (Config, error) {
	_ = godotenv.Load()

	numbering := numerator.DefaultConfig(getEnv("INVOICE_PREFIX", invoice.DefaultPrefix))
	numbering.PadWidth = getEnvInt("INVOICE_PAD_WIDTH", numbering.PadWidth)

	cfg := Config{
		Port:     getEnv("APP_PORT", "8080"),
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Backend:       Backend(strings.ToLower(getEnv("STORE_BACKEND", string(BackendMemory)))),
		TxMaxAttempts: getEnvInt("TX_MAX_ATTEMPTS", 5),

		FirestoreProjectID:   getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDatabase:      getEnv("MONGO_DATABASE", "invoicebook"),
		MongoEnsureIndexes: getEnvBool("MONGO_ENSURE_INDEXES", true),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBMigrate:   getEnvBool("DB_MIGRATE", true),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "invoicebook"),

		Invoice: invoice.Config{
			Numbering:             numbering,
			DefaultCustomerName:   getEnv("DEFAULT_CUSTOMER_NAME", invoice.DefaultCustomerName),
			DefaultCurrencySymbol: getEnv("DEFAULT_CURRENCY", invoice.DefaultCurrencySymbol),
		},

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be positive, got %d", c.TxMaxAttempts)
	}
	if c.Invoice.Numbering.PadWidth < 1 {
		return fmt.Errorf("INVOICE_PAD_WIDTH must be positive, got %d", c.Invoice.Numbering.PadWidth)
	}

	switch c.Backend {
	case BackendMemory:
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required for the firestore backend")
		}
	case BackendMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DATABASE are required for the mongo backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
