package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceproc/internal/entity"
)

func TestMap_SuccessfulMapping(t *testing.T) {
	m := NewMapper(nil)
	conf := 95.5
	inv, diags := m.Map(entity.RawExtraction{
		Fields: map[string]string{
			"invoice_number": "INV-2024-001",
			"date":           "2024-01-15",
			"vendor":         "Acme Corporation",
			"total":          "1234.56",
			"currency":       "usd",
		},
		Confidence: &conf,
	})

	assert.Empty(t, diags)
	require.NotNil(t, inv.InvoiceNumber)
	assert.Equal(t, "INV-2024-001", *inv.InvoiceNumber)
	require.NotNil(t, inv.VendorName)
	assert.Equal(t, "Acme Corporation", *inv.VendorName)
	require.NotNil(t, inv.TotalAmount)
	assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString("1234.56")))
	require.NotNil(t, inv.Currency)
	assert.Equal(t, "USD", *inv.Currency)
	require.NotNil(t, inv.InvoiceDate)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *inv.InvoiceDate)
	require.NotNil(t, inv.ConfidenceScore)
	assert.Equal(t, 95.5, *inv.ConfidenceScore)
}

func TestMap_AliasEquivalence(t *testing.T) {
	// Any recognized alias, regardless of case or whitespace, must populate
	// the field identically to the canonical key itself.
	m := NewMapper(nil)

	canonical, _ := m.Map(entity.RawExtraction{Fields: map[string]string{
		"invoice_number": "INV-001",
		"total_amount":   "100.00",
	}})

	variants := []map[string]string{
		{"Invoice Number": "INV-001", "Total Amount": "100.00"},
		{"INVOICE_NUMBER": "INV-001", "TOTAL_AMOUNT": "100.00"},
		{"  invoice_number  ": "INV-001", " total_amount ": "100.00"},
		{"inv_no": "INV-001", "grand_total": "100.00"},
		{"invoice#": "INV-001", "amount_due": "100.00"},
	}
	for _, fields := range variants {
		inv, diags := m.Map(entity.RawExtraction{Fields: fields})
		assert.Empty(t, diags, "fields %v", fields)
		require.NotNil(t, inv.InvoiceNumber, "fields %v", fields)
		assert.Equal(t, *canonical.InvoiceNumber, *inv.InvoiceNumber)
		require.NotNil(t, inv.TotalAmount, "fields %v", fields)
		assert.True(t, canonical.TotalAmount.Equal(*inv.TotalAmount))
	}
}

func TestMap_FirstAliasWins(t *testing.T) {
	m := NewMapper(nil)
	// "invoice_no" is declared before "number"; the later match is ignored.
	inv, _ := m.Map(entity.RawExtraction{Fields: map[string]string{
		"number":     "LOSER",
		"invoice_no": "WINNER",
		"total":      "10",
	}})
	require.NotNil(t, inv.InvoiceNumber)
	assert.Equal(t, "WINNER", *inv.InvoiceNumber)
}

func TestMap_MissingRequiredFields(t *testing.T) {
	m := NewMapper(nil)
	inv, diags := m.Map(entity.RawExtraction{Fields: map[string]string{
		"date":   "2024-01-15",
		"vendor": "Acme Corp",
	}})

	assert.Nil(t, inv.InvoiceNumber)
	assert.Nil(t, inv.TotalAmount)
	require.Len(t, diags, 2)
	assert.Equal(t, FieldInvoiceNumber, diags[0].Field)
	assert.Equal(t, entity.SeverityError, diags[0].Severity)
	assert.Equal(t, "invoice_number is required but not found in OCR data", diags[0].Message)
	assert.Equal(t, FieldTotalAmount, diags[1].Field)
	assert.Equal(t, entity.SeverityError, diags[1].Severity)
}

func TestMap_EmptyValueIsMissing(t *testing.T) {
	m := NewMapper(nil)
	_, diags := m.Map(entity.RawExtraction{Fields: map[string]string{
		"invoice_number": "   ",
		"total":          "50",
	}})
	require.Len(t, diags, 1)
	assert.Equal(t, FieldInvoiceNumber, diags[0].Field)
	assert.Equal(t, entity.SeverityError, diags[0].Severity)
}

func TestMap_UnparseableDates(t *testing.T) {
	m := NewMapper(nil)
	inv, diags := m.Map(entity.RawExtraction{Fields: map[string]string{
		"invoice_number": "INV-1",
		"total":          "50",
		"date":           "not a date",
	}})
	assert.Nil(t, inv.InvoiceDate)
	require.Len(t, diags, 1)
	assert.Equal(t, FieldInvoiceDate, diags[0].Field)
	// invoice_date is optional, so a bad value is only advisory.
	assert.Equal(t, entity.SeverityWarning, diags[0].Severity)
	assert.Equal(t, "invoice_date could not be parsed as a date: 'not a date'", diags[0].Message)
}

func TestMap_DecimalParsing(t *testing.T) {
	m := NewMapper(nil)
	for input, want := range map[string]string{
		"$1,234.56":  "1234.56",
		"1234.56":    "1234.56",
		" 1234.56 ":  "1234.56",
		"€99.90":     "99.90",
		"£1,000":     "1000",
		"-5.00":      "-5.00", // sign policy belongs to the validator
		"0":          "0",
		"999000001 ": "999000001",
	} {
		inv, diags := m.Map(entity.RawExtraction{Fields: map[string]string{
			"invoice_number": "INV-1",
			"total":          input,
		}})
		assert.Empty(t, diags, "input %q", input)
		require.NotNil(t, inv.TotalAmount, "input %q", input)
		assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString(want)),
			"input %q: got %s want %s", input, inv.TotalAmount, want)
	}
}

func TestMap_UnparseableRequiredAmount(t *testing.T) {
	m := NewMapper(nil)
	inv, diags := m.Map(entity.RawExtraction{Fields: map[string]string{
		"invoice_number": "INV-1",
		"total":          "twelve dollars",
	}})
	assert.Nil(t, inv.TotalAmount)
	require.Len(t, diags, 1)
	assert.Equal(t, FieldTotalAmount, diags[0].Field)
	assert.Equal(t, entity.SeverityError, diags[0].Severity)
}

func TestMap_PartyFields(t *testing.T) {
	m := NewMapper(nil)
	inv, diags := m.Map(entity.RawExtraction{Fields: map[string]string{
		"invoice_number": "INV-1",
		"total":          "50",
		"tax_id":         "12-3456789",
		"bill_to":        "Globex Inc",
		"customer_addr":  "456 Client Ave",
	}})
	assert.Empty(t, diags)
	require.NotNil(t, inv.VendorTaxID)
	assert.Equal(t, "12-3456789", *inv.VendorTaxID)
	require.NotNil(t, inv.CustomerName)
	assert.Equal(t, "Globex Inc", *inv.CustomerName)
	require.NotNil(t, inv.CustomerAddress)
	assert.Equal(t, "456 Client Ave", *inv.CustomerAddress)

	// "vat_number", "ein" and "tin" resolve to the same field.
	for _, alias := range []string{"vat_number", "EIN", "tin"} {
		inv, _ := m.Map(entity.RawExtraction{Fields: map[string]string{
			"invoice_number": "INV-1",
			"total":          "50",
			alias:            "GB123456789",
		}})
		require.NotNil(t, inv.VendorTaxID, "alias %q", alias)
		assert.Equal(t, "GB123456789", *inv.VendorTaxID)
	}
}

func TestMap_SubtotalAndTax(t *testing.T) {
	m := NewMapper(nil)
	inv, diags := m.Map(entity.RawExtraction{Fields: map[string]string{
		"invoice_number": "INV-1",
		"subtotal":       "90.00",
		"tax":            "10.00",
		"total":          "100.00",
	}})
	assert.Empty(t, diags)
	require.NotNil(t, inv.Subtotal)
	require.NotNil(t, inv.TaxAmount)
	assert.True(t, inv.Subtotal.Equal(decimal.RequireFromString("90.00")))
	assert.True(t, inv.TaxAmount.Equal(decimal.RequireFromString("10.00")))
}

func TestDateRoundTrip(t *testing.T) {
	// Parsing then re-formatting with the same layout is the identity.
	samples := map[string]string{
		"2006-01-02":      "2024-01-15",
		"01/02/2006":      "01/15/2024",
		"02-01-2006":      "15-01-2024",
		"January 2, 2006": "January 15, 2024",
		"Jan 2, 2006":     "Jan 15, 2024",
	}
	for layout, sample := range samples {
		parsed, ok := ParseDate(sample)
		require.True(t, ok, "sample %q", sample)
		assert.Equal(t, sample, parsed.Format(layout))
	}
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "invoicenumber", NormalizeKey("Invoice Number"))
	assert.Equal(t, "invoicenumber", NormalizeKey("  INVOICE_NUMBER  "))
	assert.Equal(t, "invoice#", NormalizeKey("Invoice #"))
}

func TestNewAliasTable_RejectsOverlap(t *testing.T) {
	_, err := NewAliasTable([]CanonicalField{
		{Name: "a", Aliases: []string{"x"}},
		{Name: "b", Aliases: []string{"X "}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claimed by both")
}
