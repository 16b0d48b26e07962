package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	for _, key := range []string{"STORE_BACKEND", "APP_ENV", "INVOICE_PREFIX", "INVOICE_PAD_WIDTH", "TX_MAX_ATTEMPTS", "DEFAULT_CUSTOMER_NAME", "DEFAULT_CURRENCY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "BILL", cfg.Invoice.Numbering.Prefix)
	assert.Equal(t, 3, cfg.Invoice.Numbering.PadWidth)
	assert.Equal(t, "Walk-in Customer", cfg.Invoice.DefaultCustomerName)
	assert.Equal(t, "$", cfg.Invoice.DefaultCurrencySymbol)
	assert.Equal(t, 5, cfg.TxMaxAttempts)
	assert.True(t, cfg.Development())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/invoices")
	t.Setenv("INVOICE_PREFIX", "INV")
	t.Setenv("INVOICE_PAD_WIDTH", "5")
	t.Setenv("DB_MIGRATE", "false")
	t.Setenv("TX_MAX_ATTEMPTS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "INV", cfg.Invoice.Numbering.Prefix)
	assert.Equal(t, 5, cfg.Invoice.Numbering.PadWidth)
	assert.False(t, cfg.DBMigrate)
	assert.Equal(t, 5, cfg.TxMaxAttempts)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"unknown backend", map[string]string{"JWT_SECRET": "x", "STORE_BACKEND": "redis"}, "unknown STORE_BACKEND"},
		{"firestore without project", map[string]string{"JWT_SECRET": "x", "STORE_BACKEND": "firestore"}, "FIRESTORE_PROJECT_ID"},
		{"postgres without dsn", map[string]string{"JWT_SECRET": "x", "STORE_BACKEND": "postgres"}, "DATABASE_URL"},
		{"zero pad width", map[string]string{"JWT_SECRET": "x", "INVOICE_PAD_WIDTH": "0"}, "INVOICE_PAD_WIDTH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			t.Setenv("STORE_BACKEND", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
