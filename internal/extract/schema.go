// Package extract guards the contract boundary with the upstream OCR
// producer: a payload that does not match the documented shape is a
// precondition violation and must be rejected before the engine runs.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ocrInputSchema is the structural contract for POST bodies. Values inside
// extracted_fields must be strings; anything else indicates a broken
// producer, not bad data quality.
const ocrInputSchema = `{
	"type": "object",
	"required": ["extracted_fields"],
	"properties": {
		"extracted_fields": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"raw_text": {"type": "string", "maxLength": 50000},
		"confidence_score": {"type": "number", "minimum": 0, "maximum": 100}
	},
	"additionalProperties": false
}`

var compiledSchema = mustCompile(ocrInputSchema)

func mustCompile(src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("ocr_input.json", bytes.NewReader([]byte(src))); err != nil {
		panic(err)
	}
	return compiler.MustCompile("ocr_input.json")
}

// ValidateOCRInput checks a raw request body against the OCR input schema.
func ValidateOCRInput(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match OCR input schema: %w", err)
	}
	return nil
}
