package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"invoiceproc/internal/entity"
)

// Policy holds the business-rule constants. These are configuration values,
// not invariants; the zero value is filled in with the defaults below.
type Policy struct {
	// MaxAmount is the largest acceptable total. The lower bound is fixed:
	// a total must be strictly greater than zero.
	MaxAmount decimal.Decimal
	// AmountTolerance is the largest allowed |subtotal + tax - total|.
	AmountTolerance decimal.Decimal
	// Currencies is the supported ISO 4217 whitelist.
	Currencies []string
	// MinConfidence is the OCR confidence below which a warning is emitted.
	MinConfidence float64
}

// DefaultPolicy returns the stock rule constants.
func DefaultPolicy() Policy {
	return Policy{
		MaxAmount:       decimal.NewFromInt(999_000_000),
		AmountTolerance: decimal.RequireFromString("0.01"),
		Currencies:      []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "CHF"},
		MinConfidence:   70,
	}
}

// Validator decides acceptance of an already-typed record and surfaces
// business-policy violations. All rules evaluate independently; evaluation
// never short-circuits and never fails on malformed business data.
type Validator struct {
	table      *AliasTable
	policy     Policy
	currencies map[string]struct{}
}

// NewValidator builds a validator over the alias table (for diagnostic
// ordering) and policy. Zero-value policy fields fall back to defaults.
func NewValidator(table *AliasTable, policy Policy) *Validator {
	if table == nil {
		table = DefaultAliasTable()
	}
	def := DefaultPolicy()
	if policy.MaxAmount.IsZero() {
		policy.MaxAmount = def.MaxAmount
	}
	if policy.AmountTolerance.IsZero() {
		policy.AmountTolerance = def.AmountTolerance
	}
	if len(policy.Currencies) == 0 {
		policy.Currencies = def.Currencies
	}
	if policy.MinConfidence == 0 {
		policy.MinConfidence = def.MinConfidence
	}
	set := make(map[string]struct{}, len(policy.Currencies))
	for _, c := range policy.Currencies {
		set[strings.ToUpper(c)] = struct{}{}
	}
	return &Validator{table: table, policy: policy, currencies: set}
}

// Validate merges the mapper's diagnostics with the rule diagnostics and
// computes the verdict. Mapper diagnostics stay first; each group is ordered
// by the alias table's field declaration order so identical input always
// yields a byte-identical report.
func (v *Validator) Validate(inv entity.NormalizedInvoice, mapperDiags []entity.Diagnostic) entity.ValidationReport {
	ruleDiags := v.evaluate(inv, mapperDiags)

	sort.SliceStable(ruleDiags, func(i, j int) bool {
		return v.table.FieldOrder(ruleDiags[i].Field) < v.table.FieldOrder(ruleDiags[j].Field)
	})

	diags := make([]entity.Diagnostic, 0, len(mapperDiags)+len(ruleDiags))
	diags = append(diags, mapperDiags...)
	diags = append(diags, ruleDiags...)

	accepted := true
	for _, d := range diags {
		if d.Severity == entity.SeverityError {
			accepted = false
			break
		}
	}
	return entity.ValidationReport{Accepted: accepted, Diagnostics: diags}
}

func (v *Validator) evaluate(inv entity.NormalizedInvoice, mapperDiags []entity.Diagnostic) []entity.Diagnostic {
	var out []entity.Diagnostic
	add := func(field string, sev entity.Severity, format string, args ...any) {
		out = append(out, entity.Diagnostic{Field: field, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	// Required presence. The mapper already reports a required field it could
	// not resolve; re-checking here covers callers that hand-build a record,
	// while the mapperReported guard keeps the report free of duplicates.
	mapperReported := make(map[string]struct{}, len(mapperDiags))
	for _, d := range mapperDiags {
		mapperReported[d.Field] = struct{}{}
	}
	requirePresent := func(field string, present bool) {
		if present {
			return
		}
		if _, dup := mapperReported[field]; dup {
			return
		}
		add(field, entity.SeverityError, "%s is required", field)
	}
	requirePresent(FieldInvoiceNumber, inv.InvoiceNumber != nil)
	requirePresent(FieldTotalAmount, inv.TotalAmount != nil)

	// Invoice number format.
	if inv.InvoiceNumber != nil {
		n := strings.TrimSpace(*inv.InvoiceNumber)
		if len(n) < 3 || !containsAlnum(n) {
			add(FieldInvoiceNumber, entity.SeverityError, "invoice_number contains invalid characters or format: '%s'", *inv.InvoiceNumber)
		}
	}

	// Vendor name format (optional field; only judged when present).
	if inv.VendorName != nil {
		n := strings.TrimSpace(*inv.VendorName)
		if len(n) < 2 || !containsAlnum(n) {
			add(FieldVendorName, entity.SeverityError, "vendor_name is too short or contains only special characters")
		}
	}

	// Missing optional vendor info.
	if inv.VendorAddress == nil {
		add(FieldVendorAddress, entity.SeverityWarning, "vendor_address not found in OCR data")
	}

	// Amount sign/range.
	if inv.Subtotal != nil && inv.Subtotal.IsNegative() {
		add(FieldSubtotal, entity.SeverityError, "subtotal cannot be negative")
	}
	if inv.TaxAmount != nil && inv.TaxAmount.IsNegative() {
		add(FieldTaxAmount, entity.SeverityError, "tax_amount cannot be negative")
	}
	if inv.TotalAmount != nil {
		switch {
		case !inv.TotalAmount.IsPositive():
			add(FieldTotalAmount, entity.SeverityError, "total_amount must be greater than zero: %s", inv.TotalAmount)
		case inv.TotalAmount.GreaterThan(v.policy.MaxAmount):
			add(FieldTotalAmount, entity.SeverityError, "total_amount cannot exceed %s: %s", v.policy.MaxAmount, inv.TotalAmount)
		}
	}

	// High tax advisory.
	if inv.Subtotal != nil && inv.TaxAmount != nil && inv.Subtotal.IsPositive() {
		half := inv.Subtotal.Div(decimal.NewFromInt(2))
		if inv.TaxAmount.GreaterThan(half) {
			add(FieldTaxAmount, entity.SeverityWarning, "tax_amount seems unusually high (more than 50%% of subtotal)")
		}
	}

	// Amount consistency across subtotal + tax + total.
	if inv.Subtotal != nil && inv.TaxAmount != nil && inv.TotalAmount != nil {
		calculated := inv.Subtotal.Add(*inv.TaxAmount)
		diff := calculated.Sub(*inv.TotalAmount).Abs()
		if diff.GreaterThan(v.policy.AmountTolerance) {
			add(FieldAmountConsistency, entity.SeverityError,
				"subtotal (%s) + tax_amount (%s) does not match total_amount (%s): difference %s exceeds tolerance %s",
				inv.Subtotal, inv.TaxAmount, inv.TotalAmount, diff, v.policy.AmountTolerance)
		}
	}

	// Currency whitelist.
	if inv.Currency != nil {
		if _, ok := v.currencies[*inv.Currency]; !ok {
			add(FieldCurrency, entity.SeverityError, "currency '%s' is not supported; valid currencies: %s",
				*inv.Currency, strings.Join(v.policy.Currencies, ", "))
		}
	}

	// Date ordering.
	if inv.InvoiceDate != nil && inv.DueDate != nil {
		if inv.DueDate.Before(*inv.InvoiceDate) {
			add(FieldDueDate, entity.SeverityError, "due_date cannot be before invoice_date")
		} else if inv.DueDate.After(inv.InvoiceDate.AddDate(1, 0, 0)) {
			add(FieldDueDate, entity.SeverityWarning, "due_date is more than 1 year after invoice_date")
		}
	}

	// Confidence advisory.
	if inv.ConfidenceScore != nil && *inv.ConfidenceScore < v.policy.MinConfidence {
		add(FieldConfidenceScore, entity.SeverityWarning, "low OCR confidence score: %g%%", *inv.ConfidenceScore)
	}

	return out
}

func containsAlnum(s string) bool {
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
