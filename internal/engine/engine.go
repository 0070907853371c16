// Package engine implements the two-stage field mapping and validation
// pipeline that turns a raw OCR extraction into a typed invoice record or a
// field-level explanation of why it cannot.
//
// Both stages are pure functions of their inputs plus read-only
// configuration loaded at startup, so one Engine is safe for unbounded
// concurrent use without locking.
package engine

import (
	"errors"
	"log/slog"

	"invoiceproc/internal/entity"
)

// ErrInvalidExtraction is the single precondition violation: a structurally
// invalid RawExtraction. It signals a contract breach by the upstream OCR
// producer, not a data-quality problem, and is the only condition that
// surfaces as a hard error instead of a diagnostic.
var ErrInvalidExtraction = errors.New("invalid raw extraction: fields mapping is missing")

// Engine composes the field mapper and the rule validator.
type Engine struct {
	mapper    *Mapper
	validator *Validator
	logger    *slog.Logger
}

// New builds an engine over the given alias table and policy. A nil table
// selects DefaultAliasTable; zero-value policy fields fall back to defaults.
func New(table *AliasTable, policy Policy, logger *slog.Logger) *Engine {
	if table == nil {
		table = DefaultAliasTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		mapper:    NewMapper(table),
		validator: NewValidator(table, policy),
		logger:    logger,
	}
}

// Map runs the first stage only.
func (e *Engine) Map(raw entity.RawExtraction) (entity.NormalizedInvoice, []entity.Diagnostic) {
	return e.mapper.Map(raw)
}

// Validate runs the second stage only.
func (e *Engine) Validate(inv entity.NormalizedInvoice, mapperDiags []entity.Diagnostic) entity.ValidationReport {
	return e.validator.Validate(inv, mapperDiags)
}

// Process runs both stages and returns the normalized record alongside the
// report so the caller can persist it when accepted. The returned error is
// non-nil only for ErrInvalidExtraction.
func (e *Engine) Process(raw entity.RawExtraction) (entity.NormalizedInvoice, entity.ValidationReport, error) {
	if raw.Fields == nil {
		return entity.NormalizedInvoice{}, entity.ValidationReport{}, ErrInvalidExtraction
	}

	inv, mapperDiags := e.mapper.Map(raw)
	report := e.validator.Validate(inv, mapperDiags)

	e.logger.Info("engine.process",
		"fields", len(raw.Fields),
		"accepted", report.Accepted,
		"diagnostics", len(report.Diagnostics),
	)
	return inv, report, nil
}
