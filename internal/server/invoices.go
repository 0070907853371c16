package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"invoiceproc/constants"
	"invoiceproc/internal/common"
	"invoiceproc/internal/entity"
)

// InvoiceListResponse is the wire shape for GET /v1/invoices.
type InvoiceListResponse struct {
	Total    int               `json:"total"`
	Skip     int               `json:"skip"`
	Limit    int               `json:"limit"`
	Invoices []*entity.Invoice `json:"invoices"`
}

// ListInvoices supports skip/limit pagination and an optional status filter.
func (s *Service) ListInvoices(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skip must be a non-negative integer"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	var status *constants.InvoiceStatus
	if raw := c.Query("status"); raw != "" {
		st, ok := constants.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("invalid status: %s, valid values: pending, processed, failed", raw),
			})
			return
		}
		status = &st
	}

	invoices, err := s.invoices.List(c.Request.Context(), skip, limit, status)
	if err != nil {
		s.logger.Error("failed to list invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an error occurred while retrieving invoices"})
		return
	}
	total, err := s.invoices.Count(c.Request.Context(), status)
	if err != nil {
		s.logger.Error("failed to count invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an error occurred while retrieving invoices"})
		return
	}
	if invoices == nil {
		invoices = []*entity.Invoice{}
	}

	c.JSON(http.StatusOK, InvoiceListResponse{
		Total:    total,
		Skip:     skip,
		Limit:    limit,
		Invoices: invoices,
	})
}

// GetInvoice returns one stored invoice by ID.
func (s *Service) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return
	}

	inv, err := s.invoices.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("invoice %s not found", id)})
			return
		}
		s.logger.Error("failed to get invoice", zap.String("id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an error occurred while retrieving the invoice"})
		return
	}
	c.JSON(http.StatusOK, inv)
}

// ExportInvoices streams an XLSX workbook of all stored invoices.
func (s *Service) ExportInvoices(c *gin.Context) {
	data, err := s.exporter.ExportInvoicesXLSX(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to export invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an error occurred while exporting invoices"})
		return
	}

	filename := fmt.Sprintf("invoices-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// HealthCheck reports liveness.
func (s *Service) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
