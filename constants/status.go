package constants

// InvoiceStatus is the canonical status for rows in invoices.
type InvoiceStatus string

// Stable values (store these exact strings in DB).
const (
	InvoiceStatusPending   InvoiceStatus = "pending"   // stored, awaiting downstream handling
	InvoiceStatusProcessed InvoiceStatus = "processed" // accepted by the validation engine
	InvoiceStatusFailed    InvoiceStatus = "failed"    // terminal failure recorded by an operator
)

// ValidStatuses lists the statuses accepted by list filters.
var ValidStatuses = []InvoiceStatus{InvoiceStatusPending, InvoiceStatusProcessed, InvoiceStatusFailed}

// ParseStatus returns the status matching s, or false when s is not one of
// the stable values.
func ParseStatus(s string) (InvoiceStatus, bool) {
	for _, st := range ValidStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}
