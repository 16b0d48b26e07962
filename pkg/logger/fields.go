package logger

import (
	"go.uber.org/zap"
)

// Field keys shared by every invoicebook log line.
const (
	KeyInvoiceID     = "invoice_id"
	KeyInvoiceNumber = "invoice_number"
	KeyOwnerID       = "owner_id"
	KeyBackend       = "backend"
	KeyAttempt       = "attempt"
)

// InvoiceID tags a line with the invoice document id.
func InvoiceID(id string) zap.Field {
	return zap.String(KeyInvoiceID, id)
}

// InvoiceNumber tags a line with a formatted invoice number.
func InvoiceNumber(number string) zap.Field {
	return zap.String(KeyInvoiceNumber, number)
}

// OwnerID tags a line with the invoice owner.
// It is the data owner, which is not always the caller logged as user_id.
func OwnerID(id string) zap.Field {
	return zap.String(KeyOwnerID, id)
}

// Backend tags a line with the storage backend name.
func Backend(name string) zap.Field {
	return zap.String(KeyBackend, name)
}

// Attempt tags a retry line with its 1-based attempt number.
func Attempt(n int) zap.Field {
	return zap.Int(KeyAttempt, n)
}

// Err tags a line with err under the "error" key.
func Err(err error) zap.Field {
	return zap.Error(err)
}
