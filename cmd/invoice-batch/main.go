// invoice-batch processes a directory of OCR dump files (JSON, one document
// per file) through the mapping/validation engine, collects the accepted
// invoices in an in-memory SQLite store, and writes an XLSX summary.
//
// With --watch it keeps running and picks up dumps as they appear.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"invoiceproc/constants"
	"invoiceproc/internal/common"
	"invoiceproc/internal/engine"
	"invoiceproc/internal/entity"
	"invoiceproc/internal/export"
	"invoiceproc/internal/ingest"
	"invoiceproc/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory of OCR dump files to process (required)")
		out      = flag.String("out", "", "output XLSX file path (defaults to parent directory)")
		watch    = flag.Bool("watch", false, "keep watching the directory for new dumps")
		debounce = flag.Duration("debounce", 500*time.Millisecond, "watch debounce interval")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "invoices.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// In-memory store for the run. A single connection keeps the shared
	// cache alive for the process lifetime.
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		printError("Error: opening in-memory store: %v\n", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	invoices := repository.NewInvoiceRepository(db, logger)
	if err := invoices.Migrate(ctx); err != nil {
		printError("Error: migrating store: %v\n", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	eng := engine.New(nil, engine.PolicyFromConfig(cfg.Engine, logger), logger)

	stats := runStats{}
	processDump := func(path string) {
		raw, err := ingest.ReadDump(path)
		if err != nil {
			logger.Error("skipping malformed dump", "path", path, "error", err)
			stats.malformed++
			return
		}
		inv, report, err := eng.Process(raw)
		if err != nil {
			logger.Error("skipping invalid extraction", "path", path, "error", err)
			stats.malformed++
			return
		}
		if !report.Accepted {
			logger.Warn("rejected", "path", path, "diagnostics", summarize(report))
			stats.rejected++
			return
		}
		if _, err := invoices.Create(ctx, &repository.CreateInvoiceRequest{
			Normalized:      inv,
			RawText:         raw.RawText,
			DefaultCurrency: cfg.Engine.DefaultCurrency,
		}); err != nil {
			if errors.Is(err, common.ErrDuplicate) {
				logger.Warn("duplicate invoice number", "path", path)
				stats.duplicates++
				return
			}
			logger.Error("store failed", "path", path, "error", err)
			stats.malformed++
			return
		}
		stats.accepted++
	}

	paths, err := ingest.ScanDir(*dir, constants.AllowedExtensions)
	if err != nil {
		printError("Error: scanning %s: %v\n", *dir, err)
		os.Exit(1)
	}
	for _, p := range paths {
		processDump(p)
	}

	if *watch {
		evCh, errCh, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:    []string{*dir},
			Debounce: *debounce,
		})
		if err != nil {
			printError("Error: starting watcher: %v\n", err)
			os.Exit(1)
		}
		logger.Info("watching for new dumps", "dir", *dir)
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case p, ok := <-evCh:
				if !ok {
					break loop
				}
				processDump(p)
			case err, ok := <-errCh:
				if ok && err != nil {
					logger.Error("watcher", "error", err)
				}
			}
		}
	}

	// Export whatever was accepted, even on interrupt.
	exporter := export.NewService(invoices, logger)
	data, err := exporter.ExportInvoicesXLSX(context.Background())
	if err != nil {
		printError("Error: exporting: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		printError("Error: writing %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Printf("accepted=%d rejected=%d duplicates=%d malformed=%d -> %s\n",
		stats.accepted, stats.rejected, stats.duplicates, stats.malformed, *out)
}

type runStats struct {
	accepted   int
	rejected   int
	duplicates int
	malformed  int
}

func summarize(report entity.ValidationReport) []string {
	out := make([]string, 0, len(report.Diagnostics))
	for _, d := range report.Diagnostics {
		out = append(out, fmt.Sprintf("%s: %s", d.Field, d.Message))
	}
	return out
}
