package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invoiceproc/constants"
	"invoiceproc/internal/common"
	"invoiceproc/internal/entity"
)

// The schema is kept dialect-portable: amounts are exact decimal strings,
// dates are ISO text, timestamps are RFC 3339 text. It runs unchanged on
// Postgres (pgx via database/sql) and on in-memory SQLite in tests.
var invoicesSchema = []string{`
CREATE TABLE IF NOT EXISTS invoices (
	id               TEXT PRIMARY KEY,
	invoice_number   TEXT NOT NULL UNIQUE,
	invoice_date     TEXT,
	due_date         TEXT,
	vendor_name      TEXT,
	vendor_address   TEXT,
	vendor_tax_id    TEXT,
	customer_name    TEXT,
	customer_address TEXT,
	subtotal         TEXT,
	tax_amount       TEXT,
	total_amount     TEXT NOT NULL,
	currency         TEXT NOT NULL,
	raw_ocr_text     TEXT,
	confidence_score REAL,
	status           TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status)`,
}

const dateLayout = "2006-01-02"

// CreateInvoiceRequest wraps the parameters for storing an accepted record.
type CreateInvoiceRequest struct {
	Normalized entity.NormalizedInvoice
	RawText    string
	// DefaultCurrency is applied when the normalized record carries none.
	// Defaulting is deployment policy and deliberately lives outside the
	// mapping/validation engine.
	DefaultCurrency string
}

type InvoiceRepository interface {
	Migrate(ctx context.Context) error
	Create(ctx context.Context, req *CreateInvoiceRequest) (*entity.Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	List(ctx context.Context, skip, limit int, status *constants.InvoiceStatus) ([]*entity.Invoice, error)
	Count(ctx context.Context, status *constants.InvoiceStatus) (int, error)
}

type invoiceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewInvoiceRepository(db *sql.DB, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{db: db, logger: logger}
}

// Migrate applies the invoices schema. Idempotent.
func (r *invoiceRepository) Migrate(ctx context.Context) error {
	for _, stmt := range invoicesSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			r.logger.Error("failed to apply invoices schema", "error", err)
			return common.WrapError(err, "apply invoices schema")
		}
	}
	return nil
}

func (r *invoiceRepository) Create(ctx context.Context, req *CreateInvoiceRequest) (*entity.Invoice, error) {
	n := req.Normalized
	if n.InvoiceNumber == nil || n.TotalAmount == nil {
		return nil, common.NewAppError("STORE_ERROR", "record is missing required fields", common.ErrInvalidInput)
	}

	currency := req.DefaultCurrency
	if n.Currency != nil {
		currency = *n.Currency
	}

	now := time.Now().UTC()
	inv := &entity.Invoice{
		ID:              uuid.New(),
		InvoiceNumber:   *n.InvoiceNumber,
		InvoiceDate:     n.InvoiceDate,
		DueDate:         n.DueDate,
		VendorName:      n.VendorName,
		VendorAddress:   n.VendorAddress,
		VendorTaxID:     n.VendorTaxID,
		CustomerName:    n.CustomerName,
		CustomerAddress: n.CustomerAddress,
		Subtotal:        n.Subtotal,
		TaxAmount:       n.TaxAmount,
		TotalAmount:     *n.TotalAmount,
		Currency:        currency,
		ConfidenceScore: n.ConfidenceScore,
		Status:          string(constants.InvoiceStatusProcessed),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.RawText != "" {
		inv.RawOCRText = &req.RawText
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invoices (
			id, invoice_number, invoice_date, due_date,
			vendor_name, vendor_address, vendor_tax_id,
			customer_name, customer_address,
			subtotal, tax_amount, total_amount, currency,
			raw_ocr_text, confidence_score, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		inv.ID.String(), inv.InvoiceNumber,
		dateOrNil(inv.InvoiceDate), dateOrNil(inv.DueDate),
		inv.VendorName, inv.VendorAddress, inv.VendorTaxID,
		inv.CustomerName, inv.CustomerAddress,
		decOrNil(inv.Subtotal), decOrNil(inv.TaxAmount), inv.TotalAmount.String(), inv.Currency,
		inv.RawOCRText, inv.ConfidenceScore, inv.Status,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn("duplicate invoice number", "invoice_number", inv.InvoiceNumber)
			return nil, common.ErrDuplicate
		}
		r.logger.Error("failed to insert invoice", "invoice_number", inv.InvoiceNumber, "error", err)
		return nil, common.WrapError(err, "insert invoice")
	}

	return inv, nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` FROM invoices WHERE id = $1`, id.String())
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get invoice", "id", id, "error", err)
		return nil, common.WrapError(err, "get invoice")
	}
	return inv, nil
}

func (r *invoiceRepository) List(ctx context.Context, skip, limit int, status *constants.InvoiceStatus) ([]*entity.Invoice, error) {
	query := selectColumns + ` FROM invoices`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, invoice_number LIMIT %d OFFSET %d`, limit, skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, common.WrapError(err, "list invoices")
	}
	defer rows.Close()

	var out []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan invoice")
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *invoiceRepository) Count(ctx context.Context, status *constants.InvoiceStatus) (int, error) {
	query := `SELECT COUNT(*) FROM invoices`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		r.logger.Error("failed to count invoices", "error", err)
		return 0, common.WrapError(err, "count invoices")
	}
	return n, nil
}

const selectColumns = `SELECT id, invoice_number, invoice_date, due_date,
	vendor_name, vendor_address, vendor_tax_id, customer_name, customer_address,
	subtotal, tax_amount, total_amount, currency,
	raw_ocr_text, confidence_score, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var (
		id, number, totalStr, currency, status string
		invDate, dueDate, sub, tax, rawText    sql.NullString
		vendorName, vendorAddr, vendorTaxID    sql.NullString
		customerName, customerAddr             sql.NullString
		createdAt, updatedAt                   string
		confidence                             sql.NullFloat64
	)
	if err := row.Scan(&id, &number, &invDate, &dueDate,
		&vendorName, &vendorAddr, &vendorTaxID, &customerName, &customerAddr,
		&sub, &tax, &totalStr, &currency,
		&rawText, &confidence, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse invoice id %q: %w", id, err)
	}
	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return nil, fmt.Errorf("parse total_amount %q: %w", totalStr, err)
	}

	inv := &entity.Invoice{
		ID:            parsedID,
		InvoiceNumber: number,
		TotalAmount:   total,
		Currency:      currency,
		Status:        status,
	}
	if invDate.Valid {
		if t, err := time.Parse(dateLayout, invDate.String); err == nil {
			inv.InvoiceDate = &t
		}
	}
	if dueDate.Valid {
		if t, err := time.Parse(dateLayout, dueDate.String); err == nil {
			inv.DueDate = &t
		}
	}
	if vendorName.Valid {
		inv.VendorName = &vendorName.String
	}
	if vendorAddr.Valid {
		inv.VendorAddress = &vendorAddr.String
	}
	if vendorTaxID.Valid {
		inv.VendorTaxID = &vendorTaxID.String
	}
	if customerName.Valid {
		inv.CustomerName = &customerName.String
	}
	if customerAddr.Valid {
		inv.CustomerAddress = &customerAddr.String
	}
	if sub.Valid {
		if d, err := decimal.NewFromString(sub.String); err == nil {
			inv.Subtotal = &d
		}
	}
	if tax.Valid {
		if d, err := decimal.NewFromString(tax.String); err == nil {
			inv.TaxAmount = &d
		}
	}
	if rawText.Valid {
		inv.RawOCRText = &rawText.String
	}
	if confidence.Valid {
		inv.ConfidenceScore = &confidence.Float64
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		inv.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		inv.UpdatedAt = t
	}
	return inv, nil
}

func dateOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func decOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// isUniqueViolation matches both the Postgres and SQLite unique-constraint
// error texts so the repository behaves identically under test.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
