package engine

import (
	"fmt"
	"strings"
)

// FieldType declares how a matched raw value is coerced.
type FieldType int

const (
	FieldTypeString FieldType = iota
	FieldTypeDate
	FieldTypeDecimal
	FieldTypeCurrency
)

// CanonicalField is one entry in the alias table: the normalized name an
// invoice attribute is stored under, the ordered alias keys known to refer
// to it, and its declared type. Aliases are tried in declared order and the
// first match wins, so more specific names must be listed first.
type CanonicalField struct {
	Name     string
	Aliases  []string
	Type     FieldType
	Required bool
}

// AliasTable is process-wide static configuration, read-only after
// initialization. Field order is the declaration order used for
// deterministic diagnostic ordering.
type AliasTable struct {
	fields []CanonicalField
	order  map[string]int
}

// Canonical field names. Synthetic cross-field names used by the validator
// are declared next to the field they concern so diagnostic ordering stays
// stable.
const (
	FieldInvoiceNumber     = "invoice_number"
	FieldInvoiceDate       = "invoice_date"
	FieldDueDate           = "due_date"
	FieldVendorName        = "vendor_name"
	FieldVendorAddress     = "vendor_address"
	FieldVendorTaxID       = "vendor_tax_id"
	FieldCustomerName      = "customer_name"
	FieldCustomerAddress   = "customer_address"
	FieldSubtotal          = "subtotal"
	FieldTaxAmount         = "tax_amount"
	FieldTotalAmount       = "total_amount"
	FieldAmountConsistency = "amount_consistency"
	FieldCurrency          = "currency"
	FieldConfidenceScore   = "confidence_score"
)

// NewAliasTable builds a table from the given fields, rejecting aliases
// that resolve to more than one canonical field after key normalization.
func NewAliasTable(fields []CanonicalField) (*AliasTable, error) {
	seen := make(map[string]string)
	order := make(map[string]int, len(fields))
	for i, f := range fields {
		if len(f.Aliases) == 0 {
			return nil, fmt.Errorf("alias table: field %q has no aliases", f.Name)
		}
		order[f.Name] = i
		for _, a := range f.Aliases {
			key := NormalizeKey(a)
			if owner, dup := seen[key]; dup && owner != f.Name {
				return nil, fmt.Errorf("alias table: alias %q claimed by both %q and %q", a, owner, f.Name)
			}
			seen[key] = f.Name
		}
	}
	return &AliasTable{fields: fields, order: order}, nil
}

// MustNewAliasTable is NewAliasTable for static tables known to be valid.
func MustNewAliasTable(fields []CanonicalField) *AliasTable {
	t, err := NewAliasTable(fields)
	if err != nil {
		panic(err)
	}
	return t
}

// Fields returns the canonical fields in declaration order.
func (t *AliasTable) Fields() []CanonicalField {
	return t.fields
}

// FieldOrder returns the declaration index for a canonical or synthetic
// field name. Unknown names sort last.
func (t *AliasTable) FieldOrder(name string) int {
	if i, ok := t.order[name]; ok {
		return i
	}
	// amount_consistency concerns the total; order it right after.
	if name == FieldAmountConsistency {
		if i, ok := t.order[FieldTotalAmount]; ok {
			return i
		}
	}
	return len(t.fields)
}

// NormalizeKey folds an OCR key (or alias) for comparison: lowercase with
// all whitespace and underscores removed, so "Invoice Number", "invoice_number"
// and "INVOICENUMBER" all collide.
func NormalizeKey(k string) string {
	var b strings.Builder
	b.Grow(len(k))
	for _, r := range strings.ToLower(k) {
		switch r {
		case ' ', '\t', '\n', '\r', '_':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DefaultAliasTable covers the key shapes commonly produced by upstream OCR
// engines. Preferred/specific aliases are listed first per field.
func DefaultAliasTable() *AliasTable {
	return MustNewAliasTable([]CanonicalField{
		{
			Name:     FieldInvoiceNumber,
			Aliases:  []string{"invoice_number", "invoice_no", "inv_no", "number", "invoice#"},
			Type:     FieldTypeString,
			Required: true,
		},
		{
			Name:    FieldInvoiceDate,
			Aliases: []string{"invoice_date", "date", "inv_date", "bill_date", "issue_date"},
			Type:    FieldTypeDate,
		},
		{
			Name:    FieldDueDate,
			Aliases: []string{"due_date", "payment_due", "due", "payment_date"},
			Type:    FieldTypeDate,
		},
		{
			Name:    FieldVendorName,
			Aliases: []string{"vendor_name", "vendor", "supplier", "from", "seller", "company"},
			Type:    FieldTypeString,
		},
		{
			Name:    FieldVendorAddress,
			Aliases: []string{"vendor_address", "vendor_addr", "from_address", "supplier_address"},
			Type:    FieldTypeString,
		},
		{
			Name:    FieldVendorTaxID,
			Aliases: []string{"vendor_tax_id", "tax_id", "vat_number", "ein", "tin"},
			Type:    FieldTypeString,
		},
		{
			Name:    FieldCustomerName,
			Aliases: []string{"customer_name", "customer", "bill_to", "client", "buyer"},
			Type:    FieldTypeString,
		},
		{
			Name:    FieldCustomerAddress,
			Aliases: []string{"customer_address", "customer_addr", "bill_to_address", "billing_address"},
			Type:    FieldTypeString,
		},
		{
			Name:    FieldSubtotal,
			Aliases: []string{"subtotal", "sub_total", "net_amount"},
			Type:    FieldTypeDecimal,
		},
		{
			Name:    FieldTaxAmount,
			Aliases: []string{"tax_amount", "tax", "vat", "sales_tax"},
			Type:    FieldTypeDecimal,
		},
		{
			Name:     FieldTotalAmount,
			Aliases:  []string{"total_amount", "total", "grand_total", "amount_due", "balance_due"},
			Type:     FieldTypeDecimal,
			Required: true,
		},
		{
			Name:    FieldCurrency,
			Aliases: []string{"currency", "curr", "currency_code"},
			Type:    FieldTypeCurrency,
		},
	})
}
