package stages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mytankugift/catalog-sync/internal/jobs"
	"github.com/mytankugift/catalog-sync/internal/supplier"
	"github.com/mytankugift/catalog-sync/internal/worker"
)

// stagedWriter is the slice of the catalog store the RAW stage writes.
type stagedWriter interface {
	UpsertStaged(ctx context.Context, sku string, payload []byte, checksum string) (bool, error)
}

// RawConfig is the RAW stage's own configuration shape.
type RawConfig struct {
	PageSize int
}

// RawFetcher pulls the supplier's paginated catalog into the staging
// table. One work item is one listings page, so the supplier's paging
// budget and the engine's rate limiting line up.
type RawFetcher struct {
	engine *Engine
	source supplier.Client
	staged stagedWriter
	logger *slog.Logger
	cfg    RawConfig
}

// NewRawFetcher creates the RAW stage executor.
func NewRawFetcher(engine *Engine, source supplier.Client, staged stagedWriter, logger *slog.Logger, cfg RawConfig) *RawFetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	return &RawFetcher{engine: engine, source: source, staged: staged, logger: logger, cfg: cfg}
}

func (f *RawFetcher) Type() jobs.Type { return jobs.TypeRaw }

func (f *RawFetcher) Run(ctx context.Context, jobID string) (*worker.Outcome, error) {
	plan := Plan[int]{
		Load: func(ctx context.Context) ([]int, error) {
			first, err := f.source.Listings(ctx, 1, f.cfg.PageSize)
			if err != nil {
				return nil, fmt.Errorf("failed to count supplier listings: %w", err)
			}
			pageCount := (first.Total + f.cfg.PageSize - 1) / f.cfg.PageSize
			pages := make([]int, 0, pageCount)
			for page := 1; page <= pageCount; page++ {
				pages = append(pages, page)
			}
			f.logger.Info("Supplier catalog sized",
				slog.String("job_id", jobID),
				slog.Int("listings", first.Total),
				slog.Int("pages", pageCount),
			)
			return pages, nil
		},
		Process: func(ctx context.Context, page int) (bool, error) {
			listings, err := f.source.Listings(ctx, page, f.cfg.PageSize)
			if err != nil {
				return false, err
			}

			changed := false
			for _, listing := range listings.Items {
				payload, err := json.Marshal(listing)
				if err != nil {
					return false, err
				}
				sum := sha256.Sum256(payload)
				applied, err := f.staged.UpsertStaged(ctx, listing.SKU, payload, hex.EncodeToString(sum[:]))
				if err != nil {
					return false, err
				}
				if applied {
					changed = true
				}
			}
			return changed, nil
		},
		Describe: func(page int) string { return fmt.Sprintf("page %d", page) },
	}

	return Run(ctx, f.engine, jobID, plan)
}
