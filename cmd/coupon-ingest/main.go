package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/go-faster/errors"

	"github.com/xenking/orderflow/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		capacity    uint
		fpr         float64
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing coupons*.csv.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&capacity, "bloom-capacity", 10_000_000, "expected codes per file")
	flag.Float64Var(&fpr, "bloom-fpr", 0.001, "bloom filter false positive rate")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, capacity, fpr); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, capacity uint, fpr float64) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "coupons*.csv.gz"))
	if err != nil {
		return errors.Wrap(err, "list input files")
	}
	if len(files) == 0 {
		return errors.Errorf("no coupons*.csv.gz files in %s", dataDir)
	}
	if len(files) > 64 {
		return errors.Errorf("at most 64 input files are supported, got %d", len(files))
	}
	sort.Strings(files)

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	in := &Ingester{Files: files, Capacity: capacity, FPR: fpr, Progress: 1000}
	rep, err := in.Run(ctx, postgres.New(pool))
	if err != nil {
		return err
	}
	slog.Info("coupons written",
		slog.Int("written", rep.Written),
		slog.Int("conflicts", len(rep.Conflicts)),
		slog.Int("invalid", rep.Invalid),
	)
	return nil
}
