// Command catalog-import loads supplier product feeds into the catalog.
// Feeds are gzip-compressed NDJSON files, one product record per line.
// Files are streamed concurrently; the first record seen for a product ID
// wins and later duplicates are dropped.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/scoopworks/storefront/internal/domain/catalog"
	"github.com/scoopworks/storefront/internal/repository"
)

const (
	// Supplier feeds repeat the full assortment, so capacity is sized for the
	// largest feed we have seen plus headroom.
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001

	progressEvery = 100_000
)

type feedRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Active      bool            `json:"active"`
}

func main() {
	var (
		feedDir     string
		databaseURL string
	)

	flag.StringVar(&feedDir, "feed-dir", "data", "directory containing *.ndjson.gz supplier feeds")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, feedDir, databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, feedDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(feedDir, "*.ndjson.gz"))
	if err != nil {
		return errors.Wrap(err, "list feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.ndjson.gz feeds in %s", feedDir)
	}

	slog.Info("importing feeds", slog.Int("files", len(files)))

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return importFeeds(ctx, files, repository.NewProductRepository(pool))
}

// importFeeds streams every feed concurrently into a single writer that
// dedupes IDs and upserts. The bloom filter is only touched by the writer, so
// it needs no locking.
func importFeeds(ctx context.Context, files []string, repo *repository.ProductRepository) error {
	records := make(chan feedRecord, 1024)

	g, ctx := errgroup.WithContext(ctx)
	readers, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		readers.Go(streamFeed(ctx, f, records))
	}
	g.Go(func() error {
		defer close(records)
		return readers.Wait()
	})
	g.Go(writeRecords(ctx, records, repo))

	return g.Wait()
}

func streamFeed(ctx context.Context, path string, out chan<- feedRecord) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count uint64
		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var rec feedRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return errors.Wrapf(err, "parse record in %s", path)
			}
			if rec.ID == "" {
				continue
			}

			select {
			case out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("feed progress", slog.String("file", path), slog.Uint64("records", count))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("feed complete", slog.String("file", path), slog.Uint64("records", count))
		return nil
	}
}

func writeRecords(ctx context.Context, in <-chan feedRecord, repo *repository.ProductRepository) func() error {
	return func() error {
		seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var written, dropped uint64

		for rec := range in {
			if seen.TestString(rec.ID) {
				dropped++
				continue
			}
			seen.AddString(rec.ID)

			err := repo.Upsert(ctx, &catalog.Product{
				ID:          rec.ID,
				Name:        rec.Name,
				Description: rec.Description,
				Price:       rec.Price,
				Stock:       rec.Stock,
				Active:      rec.Active,
			})
			if err != nil {
				return errors.Wrapf(err, "upsert product %s", rec.ID)
			}

			written++
			if written%progressEvery == 0 {
				slog.Info("write progress", slog.Uint64("written", written))
			}
		}

		slog.Info("write complete", slog.Uint64("written", written), slog.Uint64("duplicates", dropped))
		return nil
	}
}
