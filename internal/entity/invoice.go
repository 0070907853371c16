package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NormalizedInvoice is the mapper's output and the validator's input.
// A nil pointer means the field was not found in the extraction; any
// non-nil field has already passed type coercion and needs no further
// parsing downstream. Never mutated after construction.
type NormalizedInvoice struct {
	InvoiceNumber   *string          `json:"invoice_number,omitempty"`
	InvoiceDate     *time.Time       `json:"invoice_date,omitempty"`
	DueDate         *time.Time       `json:"due_date,omitempty"`
	VendorName      *string          `json:"vendor_name,omitempty"`
	VendorAddress   *string          `json:"vendor_address,omitempty"`
	VendorTaxID     *string          `json:"vendor_tax_id,omitempty"`
	CustomerName    *string          `json:"customer_name,omitempty"`
	CustomerAddress *string          `json:"customer_address,omitempty"`
	Subtotal        *decimal.Decimal `json:"subtotal,omitempty"`
	TaxAmount       *decimal.Decimal `json:"tax_amount,omitempty"`
	TotalAmount     *decimal.Decimal `json:"total_amount,omitempty"`
	Currency        *string          `json:"currency,omitempty"`
	ConfidenceScore *float64         `json:"confidence_score,omitempty"`
}

// Invoice represents a stored invoice for data transfer between layers.
type Invoice struct {
	ID              uuid.UUID        `json:"id"`
	InvoiceNumber   string           `json:"invoice_number"`
	InvoiceDate     *time.Time       `json:"invoice_date,omitempty"`
	DueDate         *time.Time       `json:"due_date,omitempty"`
	VendorName      *string          `json:"vendor_name,omitempty"`
	VendorAddress   *string          `json:"vendor_address,omitempty"`
	VendorTaxID     *string          `json:"vendor_tax_id,omitempty"`
	CustomerName    *string          `json:"customer_name,omitempty"`
	CustomerAddress *string          `json:"customer_address,omitempty"`
	Subtotal        *decimal.Decimal `json:"subtotal,omitempty"`
	TaxAmount       *decimal.Decimal `json:"tax_amount,omitempty"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	Currency        string           `json:"currency"`
	RawOCRText      *string          `json:"raw_ocr_text,omitempty"`
	ConfidenceScore *float64         `json:"confidence_score,omitempty"`
	Status          string           `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
