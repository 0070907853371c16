package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoiceproc/internal/common"
	"invoiceproc/internal/engine"
	"invoiceproc/internal/entity"
	"invoiceproc/internal/extract"
	"invoiceproc/internal/observability"
	"invoiceproc/internal/repository"
)

// ProcessResponse is the wire shape for POST /v1/process-ocr.
type ProcessResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Report  entity.ValidationReport `json:"report"`
	Invoice *entity.Invoice         `json:"invoice,omitempty"`
}

// ProcessOCR maps, validates and (when accepted) stores one OCR extraction.
//
//	201 accepted and stored
//	409 accepted by the engine but invoice_number already exists
//	422 rejected by the engine; the report lists what to fix
//	400 payload violates the OCR producer contract
func (s *Service) ProcessOCR(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	// Precondition boundary: a malformed payload is a contract breach by the
	// upstream producer and never reaches the engine.
	if err := extract.ValidateOCRInput(body); err != nil {
		s.metrics.DocumentsTotal.WithLabelValues(observability.OutcomePreconditionFailed).Inc()
		s.logger.Warn("rejected malformed OCR payload",
			zap.String("request_id", c.GetString("request_id")), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var raw entity.RawExtraction
	if err := json.Unmarshal(body, &raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to decode request body"})
		return
	}

	start := time.Now()
	inv, report, err := s.engine.Process(raw)
	s.metrics.ProcessDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		// Only ErrInvalidExtraction reaches here; the schema check makes it
		// unlikely, but the engine owns its own precondition.
		s.metrics.DocumentsTotal.WithLabelValues(observability.OutcomePreconditionFailed).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, d := range report.Diagnostics {
		s.metrics.DiagnosticsTotal.WithLabelValues(string(d.Severity)).Inc()
	}

	if !report.Accepted {
		s.metrics.DocumentsTotal.WithLabelValues(observability.OutcomeRejected).Inc()
		c.JSON(http.StatusUnprocessableEntity, ProcessResponse{
			Success: false,
			Message: "invoice validation failed",
			Report:  report,
		})
		return
	}

	stored, err := s.invoices.Create(c.Request.Context(), &repository.CreateInvoiceRequest{
		Normalized:      inv,
		RawText:         raw.RawText,
		DefaultCurrency: s.defaultCurrency,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicate) {
			// The storage collaborator owns duplicate detection; its verdict
			// is surfaced as one more field-addressed diagnostic.
			report.Accepted = false
			report.Diagnostics = append(report.Diagnostics, entity.Diagnostic{
				Field:    engine.FieldInvoiceNumber,
				Severity: entity.SeverityError,
				Message:  fmt.Sprintf("invoice with number '%s' already exists", *inv.InvoiceNumber),
			})
			s.metrics.DocumentsTotal.WithLabelValues(observability.OutcomeDuplicate).Inc()
			c.JSON(http.StatusConflict, ProcessResponse{
				Success: false,
				Message: "invoice already exists",
				Report:  report,
			})
			return
		}
		s.logger.Error("failed to store invoice",
			zap.String("request_id", c.GetString("request_id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store invoice"})
		return
	}

	s.metrics.DocumentsTotal.WithLabelValues(observability.OutcomeAccepted).Inc()
	s.logger.Info("processed OCR document",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("invoice_id", stored.ID.String()),
		zap.String("invoice_number", stored.InvoiceNumber),
	)
	c.JSON(http.StatusCreated, ProcessResponse{
		Success: true,
		Message: fmt.Sprintf("invoice %s processed successfully", stored.InvoiceNumber),
		Report:  report,
		Invoice: stored,
	})
}
