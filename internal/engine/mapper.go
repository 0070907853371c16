package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoiceproc/internal/entity"
)

// Mapper performs best-effort translation of an arbitrary OCR key/value
// mapping into an entity.NormalizedInvoice. It never fails: every problem
// becomes a diagnostic and absent fields stay nil.
type Mapper struct {
	table *AliasTable
}

// NewMapper returns a mapper over the given alias table. The table is
// read-only, so one mapper serves any number of concurrent callers.
func NewMapper(table *AliasTable) *Mapper {
	if table == nil {
		table = DefaultAliasTable()
	}
	return &Mapper{table: table}
}

// Map resolves aliases and coerces types for one extraction. Diagnostics
// come back in the alias table's field declaration order.
func (m *Mapper) Map(raw entity.RawExtraction) (entity.NormalizedInvoice, []entity.Diagnostic) {
	lookup := normalizeFields(raw.Fields)

	var inv entity.NormalizedInvoice
	var diags []entity.Diagnostic

	for _, field := range m.table.Fields() {
		value, found := firstAliasMatch(lookup, field.Aliases)
		if found {
			// Empty after trimming is indistinguishable from not found.
			if strings.TrimSpace(value) == "" {
				found = false
			}
		}
		if !found {
			if field.Required {
				diags = append(diags, entity.Diagnostic{
					Field:    field.Name,
					Severity: entity.SeverityError,
					Message:  fmt.Sprintf("%s is required but not found in OCR data", field.Name),
				})
			}
			continue
		}

		switch field.Type {
		case FieldTypeString:
			s := strings.TrimSpace(value)
			setString(&inv, field.Name, s)

		case FieldTypeDate:
			t, ok := ParseDate(strings.TrimSpace(value))
			if !ok {
				diags = append(diags, entity.Diagnostic{
					Field:    field.Name,
					Severity: severityFor(field),
					Message:  fmt.Sprintf("%s could not be parsed as a date: '%s'", field.Name, value),
				})
				continue
			}
			setDate(&inv, field.Name, t)

		case FieldTypeDecimal:
			d, ok := ParseAmount(value)
			if !ok {
				diags = append(diags, entity.Diagnostic{
					Field:    field.Name,
					Severity: severityFor(field),
					Message:  fmt.Sprintf("%s could not be parsed as an amount: '%s'", field.Name, value),
				})
				continue
			}
			setDecimal(&inv, field.Name, d)

		case FieldTypeCurrency:
			s := strings.ToUpper(strings.TrimSpace(value))
			inv.Currency = &s
		}
	}

	// Confidence is copied through unchanged; the validator owns range policy.
	if raw.Confidence != nil {
		c := *raw.Confidence
		inv.ConfidenceScore = &c
	}

	return inv, diags
}

func severityFor(f CanonicalField) entity.Severity {
	if f.Required {
		return entity.SeverityError
	}
	return entity.SeverityWarning
}

// normalizeFields builds the normalized-key lookup once per extraction.
// Raw keys are visited in sorted order so that a (contract-violating)
// pair of keys with the same normal form still resolves deterministically.
func normalizeFields(fields map[string]string) map[string]string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lookup := make(map[string]string, len(fields))
	for _, k := range keys {
		nk := NormalizeKey(k)
		if _, exists := lookup[nk]; !exists {
			lookup[nk] = fields[k]
		}
	}
	return lookup
}

func setString(inv *entity.NormalizedInvoice, name, s string) {
	switch name {
	case FieldInvoiceNumber:
		inv.InvoiceNumber = &s
	case FieldVendorName:
		inv.VendorName = &s
	case FieldVendorAddress:
		inv.VendorAddress = &s
	case FieldVendorTaxID:
		inv.VendorTaxID = &s
	case FieldCustomerName:
		inv.CustomerName = &s
	case FieldCustomerAddress:
		inv.CustomerAddress = &s
	}
}

func setDate(inv *entity.NormalizedInvoice, name string, t time.Time) {
	switch name {
	case FieldInvoiceDate:
		inv.InvoiceDate = &t
	case FieldDueDate:
		inv.DueDate = &t
	}
}

func setDecimal(inv *entity.NormalizedInvoice, name string, d decimal.Decimal) {
	switch name {
	case FieldSubtotal:
		inv.Subtotal = &d
	case FieldTaxAmount:
		inv.TaxAmount = &d
	case FieldTotalAmount:
		inv.TotalAmount = &d
	}
}

func firstAliasMatch(lookup map[string]string, aliases []string) (string, bool) {
	for _, alias := range aliases {
		if v, ok := lookup[NormalizeKey(alias)]; ok {
			return v, true
		}
	}
	return "", false
}
