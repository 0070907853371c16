package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRoutes wires the HTTP surface onto router.
func SetupRoutes(router *gin.Engine, svc *Service, logger *zap.Logger) {
	router.Use(RequestID())
	router.Use(RequestLogger(logger))

	router.GET("/health", svc.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/process-ocr", svc.ProcessOCR)
		v1.GET("/invoices", svc.ListInvoices)
		v1.GET("/invoices/export", svc.ExportInvoices)
		v1.GET("/invoices/:id", svc.GetInvoice)
	}
}
