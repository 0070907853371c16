package server

import (
	"go.uber.org/zap"

	"invoiceproc/internal/engine"
	"invoiceproc/internal/export"
	"invoiceproc/internal/observability"
	"invoiceproc/internal/repository"
)

// Service bundles the collaborators the HTTP handlers need. The engine is
// the only component with decision logic; everything else is plumbing
// around it.
type Service struct {
	engine          *engine.Engine
	invoices        repository.InvoiceRepository
	exporter        *export.Service
	metrics         *observability.EngineMetrics
	defaultCurrency string
	logger          *zap.Logger
}

func NewService(
	eng *engine.Engine,
	invoices repository.InvoiceRepository,
	exporter *export.Service,
	metrics *observability.EngineMetrics,
	defaultCurrency string,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:          eng,
		invoices:        invoices,
		exporter:        exporter,
		metrics:         metrics,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}
