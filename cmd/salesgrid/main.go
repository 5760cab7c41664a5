// salesgrid ingests the auto-sales feed into HBase and derives the
// analytic report from the stored rows.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/xtxerr/salesgrid/internal/analysis"
	"github.com/xtxerr/salesgrid/internal/config"
	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
	"github.com/xtxerr/salesgrid/internal/export"
	"github.com/xtxerr/salesgrid/internal/ingest"
	"github.com/xtxerr/salesgrid/internal/logging"
	"github.com/xtxerr/salesgrid/internal/query"
	"github.com/xtxerr/salesgrid/internal/record"
	"github.com/xtxerr/salesgrid/internal/report"
	"github.com/xtxerr/salesgrid/internal/shell"
	"github.com/xtxerr/salesgrid/internal/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// CLI flags
	cfgPath := flag.String("config", "salesgrid.yaml", "config file path")
	csvPath := flag.String("csv", "", "sales CSV path (overrides config)")
	quorum := flag.String("quorum", "", "ZooKeeper quorum host:port (overrides config)")
	table := flag.String("table", "", "table name (overrides config)")
	batchSize := flag.Int("batch-size", 0, "rows per batch write (overrides config)")
	country := flag.String("country", "", "country for the large-sales query (overrides config)")
	threshold := flag.Float64("threshold", 0, "large-sale threshold (overrides config)")
	exportDir := flag.String("export", "", "parquet snapshot directory (overrides config)")
	skipIngest := flag.Bool("skip-ingest", false, "skip CSV ingestion, query existing rows")
	interactive := flag.Bool("shell", false, "drop into the interactive shell after the run")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.DefaultConfig()
		} else {
			return err
		}
	}

	// CLI overrides
	if *csvPath != "" {
		cfg.Source.Path = *csvPath
	}
	if *quorum != "" {
		cfg.Store.Quorum = *quorum
	}
	if *table != "" {
		cfg.Store.Table = *table
	}
	if *batchSize > 0 {
		cfg.Ingest.BatchSize = *batchSize
	}
	if *country != "" {
		cfg.Query.FilterCountry = *country
	}
	if *threshold > 0 {
		cfg.Query.LargeSaleThreshold = *threshold
	}
	if *exportDir != "" {
		cfg.Export.Dir = *exportDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)
	log := logging.Component("main")
	log.Info("salesgrid starting", "version", Version, "table", cfg.Store.Table)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// Connect and provision
	// =========================================================================

	client, err := store.Connect(ctx, cfg.Store.Quorum)
	if err != nil {
		return err
	}
	// The handle is shared by everything below; teardown must run on
	// every exit path, fatal errors included.
	defer client.Close()

	if err := store.EnsureTable(ctx, client, cfg.Store.Table, cfg.Store.Families); err != nil {
		return err
	}

	renderer := report.New(os.Stdout)
	queries := query.New(client, cfg.Store.Table)

	// =========================================================================
	// Ingest
	// =========================================================================

	if !*skipIngest {
		records, lineErrs, err := record.LoadCSV(cfg.Source.Path)
		if err != nil {
			return err
		}
		for _, le := range lineErrs {
			log.Warn("csv line skipped", "line", le.Line, "error", le.Err)
		}
		log.Info("csv loaded", "records", len(records), "skipped_lines", len(lineErrs))

		batcher := ingest.New(client, cfg.Store.Table)
		batcher.FlushConcurrency = cfg.Ingest.FlushConcurrency

		rep, err := batcher.Ingest(ctx, records, cfg.Ingest.BatchSize)
		if err != nil {
			return err
		}
		renderer.Ingest(rep)
	}

	// =========================================================================
	// Point CRUD demonstration (order 10107, product S10_1678)
	// =========================================================================

	if err := demoPointOps(ctx, queries); err != nil && !sgerrors.IsNotFound(err) {
		return err
	}

	// =========================================================================
	// Large sales by country
	// =========================================================================

	largeSales, err := queries.LargeSalesByCountry(ctx, cfg.Query.FilterCountry, cfg.Query.LargeSaleThreshold)
	if err != nil {
		return err
	}
	renderer.LargeSales(cfg.Query.FilterCountry, cfg.Query.LargeSaleThreshold, largeSales)

	// =========================================================================
	// Full scan, aggregation, report
	// =========================================================================

	it, err := queries.Scan(ctx, store.ScanOptions{Projection: cfg.ProjectionMap()})
	if err != nil {
		return err
	}
	metrics, err := analysis.Summarize(ctx, it)
	it.Close()
	if err != nil {
		return err
	}
	renderer.Metrics(metrics, cfg.Query.TopCountries)

	// =========================================================================
	// Parquet snapshot and offline breakdown
	// =========================================================================

	var offline *analysis.Offline
	if cfg.Export.Dir != "" {
		offline, err = exportAndAnalyze(ctx, queries, renderer, cfg.Export.Dir)
		if err != nil {
			return err
		}
		defer offline.Close()
	}

	// =========================================================================
	// Interactive shell
	// =========================================================================

	if *interactive {
		sh := shell.New(ctx, queries, renderer, offline,
			cfg.Query.FilterCountry, cfg.Query.LargeSaleThreshold, cfg.Query.TopCountries)
		if cfg.Export.Dir != "" {
			sh.SnapshotPattern = filepath.Join(cfg.Export.Dir, "*.parquet")
		}
		sh.Run()
	}

	log.Info("salesgrid finished")
	return nil
}

// demoPointOps exercises the point operations on a known order:
// fetch it, cancel it, fetch it again.
func demoPointOps(ctx context.Context, queries *query.Service) error {
	const (
		orderNumber = 10107
		productCode = "S10_1678"
	)

	row, err := queries.Get(ctx, orderNumber, productCode)
	if err != nil {
		return err
	}
	fmt.Printf("\nOrder %d / %s:\n", orderNumber, productCode)
	printRow(row)

	err = queries.Update(ctx, orderNumber, productCode, map[string]map[string]string{
		record.FamilyOrderInfo: {"status": "Cancelled"},
	})
	if err != nil {
		return err
	}

	row, err = queries.Get(ctx, orderNumber, productCode)
	if err != nil {
		return err
	}
	status, _ := row.Value(record.FamilyOrderInfo, "status")
	fmt.Printf("After update, status = %s\n", status)
	return nil
}

func printRow(row *store.StoredRow) {
	fams := make([]string, 0, len(row.Families))
	for f := range row.Families {
		fams = append(fams, f)
	}
	sort.Strings(fams)
	for _, f := range fams {
		quals := make([]string, 0, len(row.Families[f]))
		for q := range row.Families[f] {
			quals = append(quals, q)
		}
		sort.Strings(quals)
		for _, q := range quals {
			fmt.Printf("  %s:%s = %s\n", f, q, row.Families[f][q])
		}
	}
}

// exportAndAnalyze writes a parquet snapshot of the table and runs the
// offline product-line breakdown over all snapshots in the directory.
func exportAndAnalyze(ctx context.Context, queries *query.Service, renderer *report.Renderer, dir string) (*analysis.Offline, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	it, err := queries.Scan(ctx, store.ScanOptions{})
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("auto_sales_%s.parquet", time.Now().Format("2006-01-02_15-04-05")))
	rows, err := export.WriteSnapshot(ctx, it, path)
	it.Close()
	if err != nil {
		return nil, err
	}
	logging.Component("main").Info("snapshot exported", "path", path, "rows", rows)

	offline, err := analysis.NewOffline()
	if err != nil {
		return nil, err
	}

	totals, err := offline.ProductLineTotals(ctx, filepath.Join(dir, "*.parquet"))
	if err != nil {
		offline.Close()
		return nil, err
	}
	renderer.LineTotals(totals)

	return offline, nil
}
