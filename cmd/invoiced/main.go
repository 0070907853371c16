package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"invoiceproc/internal/common"
	"invoiceproc/internal/engine"
	"invoiceproc/internal/export"
	"invoiceproc/internal/observability"
	"invoiceproc/internal/repository"
	"invoiceproc/internal/server"
)

func main() {
	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slogger)

	// Config
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// DB pool
	db, pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, slogger)
	if err != nil {
		log.Fatalf("creating DB pool: %v", err)
	}
	defer repository.Close(db, pool, slogger)

	// Healthcheck DB on startup
	if err := repository.HealthCheck(ctx, pool, cfg.Database.HealthTimeout, slogger); err != nil {
		log.Fatalf("DB health failed: %v", err)
	}
	log.Infow("DB health OK")

	invoices := repository.NewInvoiceRepository(db, slogger)
	if err := invoices.Migrate(ctx); err != nil {
		log.Fatalf("migrating invoices schema: %v", err)
	}

	// Engine from policy config
	eng := engine.New(nil, engine.PolicyFromConfig(cfg.Engine, slogger), slogger)

	// HTTP server
	metrics := observability.NewEngineMetrics(prometheus.DefaultRegisterer)
	exporter := export.NewService(invoices, slogger)
	svc := server.NewService(eng, invoices, exporter, metrics, cfg.Engine.DefaultCurrency, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	server.SetupRoutes(router, svc, logger)

	srv := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: router}
	go func() {
		log.Infof("HTTP serving on %s", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http shutdown: %v", err)
	}
	fmt.Println("stopped.")
}
