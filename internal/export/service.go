package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"invoiceproc/internal/entity"
	"invoiceproc/internal/repository"
)

// Service is a tiny façade over the invoice repository that produces XLSX
// bytes for exports.
type Service struct {
	invoices repository.InvoiceRepository
	logger   *slog.Logger
}

func NewService(invoices repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, logger: logger}
}

// exportPageSize bounds a single repository read while paging through the
// full invoice set.
const exportPageSize = 500

// ExportInvoicesXLSX returns an XLSX workbook (as bytes) of all stored
// invoices, newest first.
func (s *Service) ExportInvoicesXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// Drop the default sheet so the workbook opens on Invoices.
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Invoice Number",
		"Invoice Date",
		"Due Date",
		"Vendor",
		"Customer",
		"Subtotal",
		"Tax",
		"Total",
		"Currency",
		"Confidence",
		"Status",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	total := 0
	for skip := 0; ; skip += exportPageSize {
		recs, err := s.invoices.List(ctx, skip, exportPageSize, nil)
		if err != nil {
			return nil, fmt.Errorf("query invoices: %w", err)
		}
		for _, r := range recs {
			writeInvoiceRow(f, sheet, row, r)
			row++
		}
		total += len(recs)
		if len(recs) < exportPageSize {
			break
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 20) // number
	_ = f.SetColWidth(sheet, "B", "C", 14) // dates
	_ = f.SetColWidth(sheet, "D", "E", 32) // parties
	_ = f.SetColWidth(sheet, "F", "H", 14) // amounts
	_ = f.SetColWidth(sheet, "I", "K", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeInvoiceRow(f *excelize.File, sheet string, row int, r *entity.Invoice) {
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	write(1, r.InvoiceNumber)
	if r.InvoiceDate != nil {
		write(2, r.InvoiceDate.Format("2006-01-02"))
	}
	if r.DueDate != nil {
		write(3, r.DueDate.Format("2006-01-02"))
	}
	if r.VendorName != nil {
		write(4, *r.VendorName)
	}
	if r.CustomerName != nil {
		write(5, *r.CustomerName)
	}
	if r.Subtotal != nil {
		write(6, r.Subtotal.String())
	}
	if r.TaxAmount != nil {
		write(7, r.TaxAmount.String())
	}
	write(8, r.TotalAmount.String())
	write(9, r.Currency)
	if r.ConfidenceScore != nil {
		write(10, *r.ConfidenceScore)
	}
	write(11, r.Status)
}
