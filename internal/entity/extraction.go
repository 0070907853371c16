package entity

// RawExtraction is the payload handed over by the upstream OCR producer.
// It is constructed once per incoming document and never mutated.
type RawExtraction struct {
	// Fields maps arbitrary OCR key names to the text found next to them.
	// Key comparison downstream is case- and whitespace-insensitive.
	Fields map[string]string `json:"extracted_fields"`
	// RawText is the full source text, carried through for audit only.
	RawText string `json:"raw_text,omitempty"`
	// Confidence is the upstream OCR confidence in [0,100], if reported.
	Confidence *float64 `json:"confidence_score,omitempty"`
}

// Severity classifies a diagnostic. Errors block acceptance, warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a single field-attributed problem report.
type Diagnostic struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ValidationReport is the final verdict for one processed extraction.
// Mapper diagnostics come first, then validator diagnostics, each group
// ordered by the alias table's field declaration order.
type ValidationReport struct {
	Accepted    bool         `json:"accepted"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Errors returns only the error-severity diagnostics.
func (r ValidationReport) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning-severity diagnostics.
func (r ValidationReport) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}
