package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"invoiceproc/internal/engine"
	"invoiceproc/internal/entity"
	"invoiceproc/internal/export"
	"invoiceproc/internal/observability"
	"invoiceproc/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	repo := repository.NewInvoiceRepository(db, nil)
	require.NoError(t, repo.Migrate(context.Background()))

	eng := engine.New(nil, engine.Policy{}, nil)
	metrics := observability.NewEngineMetrics(prometheus.NewRegistry())
	exporter := export.NewService(repo, nil)
	svc := NewService(eng, repo, exporter, metrics, "USD", zap.NewNop())

	router := gin.New()
	SetupRoutes(router, svc, zap.NewNop())
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const validPayload = `{
	"raw_text": "INVOICE\nInvoice #: INV-2024-001",
	"extracted_fields": {
		"invoice_number": "INV-2024-001",
		"date": "2024-01-15",
		"vendor": "Acme Corporation",
		"vendor_address": "123 Business St",
		"total": "1234.56",
		"currency": "USD"
	},
	"confidence_score": 95.5
}`

func TestProcessOCR_Created(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/v1/process-ocr", validPayload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Report.Accepted)
	require.NotNil(t, resp.Invoice)
	assert.Equal(t, "INV-2024-001", resp.Invoice.InvoiceNumber)
	assert.Equal(t, "USD", resp.Invoice.Currency)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProcessOCR_RejectedWithReport(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/v1/process-ocr",
		`{"extracted_fields": {"vendor": "Acme"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.False(t, resp.Report.Accepted)
	assert.Nil(t, resp.Invoice)
	require.Len(t, resp.Report.Errors(), 2)
}

func TestProcessOCR_Duplicate(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/v1/process-ocr", validPayload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/v1/process-ocr", validPayload)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.False(t, resp.Report.Accepted)
	found := false
	for _, d := range resp.Report.Diagnostics {
		if d.Field == engine.FieldInvoiceNumber && d.Severity == entity.SeverityError {
			found = true
			assert.Contains(t, d.Message, "already exists")
		}
	}
	assert.True(t, found, "duplicate diagnostic missing: %v", resp.Report.Diagnostics)
}

func TestProcessOCR_MalformedPayload(t *testing.T) {
	router := newTestRouter(t)
	for name, body := range map[string]string{
		"missing extracted_fields": `{"raw_text": "x"}`,
		"non-string field value":   `{"extracted_fields": {"total": 5}}`,
		"not json":                 `{{`,
	} {
		rec := doRequest(t, router, http.MethodPost, "/v1/process-ocr", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestProcessOCR_DefaultCurrencyAppliedAtStorage(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/v1/process-ocr",
		`{"extracted_fields": {"invoice_number": "INV-NC", "total": "10.00"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Invoice)
	assert.Equal(t, "USD", resp.Invoice.Currency)
}

func TestListInvoices(t *testing.T) {
	router := newTestRouter(t)
	for _, n := range []string{"INV-A", "INV-B", "INV-C"} {
		rec := doRequest(t, router, http.MethodPost, "/v1/process-ocr",
			`{"extracted_fields": {"invoice_number": "`+n+`", "total": "10.00"}}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(t, router, http.MethodGet, "/v1/invoices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp InvoiceListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Invoices, 3)

	rec = doRequest(t, router, http.MethodGet, "/v1/invoices?skip=1&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Invoices, 1)
}

func TestListInvoices_BadParams(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{
		"/v1/invoices?skip=-1",
		"/v1/invoices?limit=0",
		"/v1/invoices?limit=101",
		"/v1/invoices?status=bogus",
	} {
		rec := doRequest(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestGetInvoice(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/v1/process-ocr", validPayload)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, router, http.MethodGet, "/v1/invoices/"+created.Invoice.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got entity.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.Invoice.ID, got.ID)
	assert.Equal(t, "INV-2024-001", got.InvoiceNumber)
}

func TestGetInvoice_Errors(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/invoices/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/v1/invoices/7a2f3b9e-0000-4000-8000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportInvoices(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodPost, "/v1/process-ocr", validPayload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/v1/invoices/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
