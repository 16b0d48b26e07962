package invoice

import (
	"invoicebook/internal/core/numerator"
)

const (
	// DefaultPrefix starts every invoice number: BILL/25/001.
	DefaultPrefix = "BILL"

	// DefaultCustomerName replaces a blank customer name.
	DefaultCustomerName = "Walk-in Customer"

	// DefaultCurrencySymbol replaces a blank currency symbol.
	DefaultCurrencySymbol = "$"
)

// Config holds the numbering layout and the defaults applied to drafts.
type Config struct {
	Numbering             numerator.Config
	DefaultCustomerName   string
	DefaultCurrencySymbol string
}

// DefaultConfig returns BILL/YY/NNN numbering with the standard defaults.
func DefaultConfig() Config {
	return Config{
		Numbering:             numerator.DefaultConfig(DefaultPrefix),
		DefaultCustomerName:   DefaultCustomerName,
		DefaultCurrencySymbol: DefaultCurrencySymbol,
	}
}

func (c Config) withDefaults() Config {
	if c.Numbering.Scope == "" {
		c.Numbering.Scope = numerator.DefaultScope
	}
	if c.Numbering.Prefix == "" {
		c.Numbering.Prefix = DefaultPrefix
	}
	if c.Numbering.PadWidth <= 0 {
		c.Numbering.PadWidth = 3
	}
	if c.DefaultCustomerName == "" {
		c.DefaultCustomerName = DefaultCustomerName
	}
	if c.DefaultCurrencySymbol == "" {
		c.DefaultCurrencySymbol = DefaultCurrencySymbol
	}
	return c
}
