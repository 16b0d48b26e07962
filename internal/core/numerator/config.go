// Package numerator provides domain contracts for document auto-numbering.
package numerator

// DefaultScope is the single global numbering scope shared by all invoice creators.
const DefaultScope = "invoices"

// Config holds numbering configuration.
type Config struct {
	// Scope names the counter document (e.g., "invoices").
	Scope string

	// Prefix added to all numbers (e.g., "BILL")
	Prefix string

	// IncludeYear adds the 2-digit allocation year to the number
	IncludeYear bool

	// PadWidth is the minimum width of the numeric suffix (default 3).
	// Larger numbers are never truncated.
	PadWidth int
}

// DefaultConfig returns the invoice numbering layout: PREFIX/YY/NNN.
func DefaultConfig(prefix string) Config {
	return Config{
		Scope:       DefaultScope,
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    3,
	}
}
