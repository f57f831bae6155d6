// Command menu-ingest bulk-imports menu items from gzipped JSONL exports.
// Each line is one menu item object; exports from different POS snapshots
// overlap heavily, so item IDs already ingested in this run are skipped via a
// bloom filter.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/resto-platform/internal/domain/catalog"
	"github.com/xenking/resto-platform/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing menu-export-*.jsonl.gz files")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("menu ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("menu ingest completed successfully")
}

// dedup tracks item IDs already ingested in this run. Upserts are idempotent,
// so a bloom false positive only costs a redundant skip on re-runs; the rate
// is bounded by bloomFPR.
type dedup struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// seen reports whether id was already added, and adds it otherwise.
func (d *dedup) seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.filter.TestString(id) {
		return true
	}
	d.filter.AddString(id)
	return false
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "menu-export-*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob data dir")
	}
	if len(files) == 0 {
		return errors.Errorf("no menu-export-*.jsonl.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := repository.NewCatalogRepository(pool)
	d := &dedup{filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR)}

	slog.Info("ingesting exports", slog.Int("files", len(files)))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(ingestFile(ctx, i, f, repo, d))
	}
	return g.Wait()
}

func ingestFile(ctx context.Context, idx int, path string, repo *repository.CatalogRepository, d *dedup) func() error {
	return func() error {
		var total, written, skipped uint64

		err := streamGzLines(ctx, path, func(line []byte) error {
			total++
			if total%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.Int("file", idx+1),
					slog.Uint64("lines", total),
				)
			}

			mi, err := decodeMenuItem(line)
			if err != nil {
				return errors.Wrapf(err, "line %d", total)
			}
			if d.seen(mi.ID) {
				skipped++
				return nil
			}

			if err := repo.UpsertItem(ctx, mi); err != nil {
				return errors.Wrapf(err, "upsert item %s", mi.ID)
			}
			written++
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "ingest %s", path)
		}

		slog.Info("file complete",
			slog.Int("file", idx+1),
			slog.Uint64("lines", total),
			slog.Uint64("written", written),
			slog.Uint64("skipped", skipped),
		)
		return nil
	}
}

// decodeMenuItem parses one JSONL line. Required fields: id, restaurant_id,
// name, price, category. Unknown keys are skipped so exports can carry extra
// POS metadata.
func decodeMenuItem(line []byte) (*catalog.MenuItem, error) {
	var (
		mi       catalog.MenuItem
		priceRaw string
	)
	mi.Available = true

	dec := jx.DecodeBytes(line)
	if err := dec.Obj(func(dec *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			mi.ID, err = dec.Str()
		case "restaurant_id":
			mi.RestaurantID, err = dec.Str()
		case "name":
			mi.Name, err = dec.Str()
		case "description":
			mi.Description, err = dec.Str()
		case "price":
			// Exports carry prices as either "12.50" or 12.5.
			if dec.Next() == jx.String {
				priceRaw, err = dec.Str()
			} else {
				var n jx.Num
				if n, err = dec.Num(); err == nil {
					priceRaw = n.String()
				}
			}
		case "category":
			mi.Category, err = dec.Str()
		case "is_available":
			mi.Available, err = dec.Bool()
		case "allergens":
			err = dec.Arr(func(dec *jx.Decoder) error {
				a, err := dec.Str()
				if err != nil {
					return err
				}
				mi.Allergens = append(mi.Allergens, a)
				return nil
			})
		default:
			err = dec.Skip()
		}
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode object")
	}

	if mi.ID == "" || mi.RestaurantID == "" || mi.Name == "" || mi.Category == "" {
		return nil, errors.New("missing required field")
	}

	price, err := decimal.NewFromString(priceRaw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse price for item %s", mi.ID)
	}
	if price.IsNegative() {
		return nil, errors.Errorf("negative price for item %s", mi.ID)
	}
	mi.Price = price

	return &mi, nil
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
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

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
