package stages

import (
	"context"
	"log/slog"
	"time"

	"github.com/mytankugift/catalog-sync/internal/jobs"
	"github.com/mytankugift/catalog-sync/internal/supplier"
	"github.com/mytankugift/catalog-sync/internal/worker"
)

// stockStore is the slice of the catalog store the STOCK_REFRESH stage
// uses.
type stockStore interface {
	PublishedSKUs(ctx context.Context) ([]string, error)
	StockFresh(ctx context.Context, sku string, maxAge time.Duration) (bool, error)
	SetStock(ctx context.Context, sku string, qty int) error
}

// StockConfig is the STOCK_REFRESH stage's own configuration shape.
type StockConfig struct {
	// Freshness is how recent a stock check must be for a SKU to be
	// skipped on resume.
	Freshness time.Duration
}

// StockRefresher re-reads supplier stock levels for every published
// product.
type StockRefresher struct {
	engine *Engine
	source supplier.Client
	store  stockStore
	logger *slog.Logger
	cfg    StockConfig
}

// NewStockRefresher creates the STOCK_REFRESH stage executor.
func NewStockRefresher(engine *Engine, source supplier.Client, store stockStore, logger *slog.Logger, cfg StockConfig) *StockRefresher {
	if cfg.Freshness <= 0 {
		cfg.Freshness = 15 * time.Minute
	}
	return &StockRefresher{engine: engine, source: source, store: store, logger: logger, cfg: cfg}
}

func (s *StockRefresher) Type() jobs.Type { return jobs.TypeStockRefresh }

func (s *StockRefresher) Run(ctx context.Context, jobID string) (*worker.Outcome, error) {
	plan := Plan[string]{
		Load: s.store.PublishedSKUs,
		Process: func(ctx context.Context, sku string) (bool, error) {
			fresh, err := s.store.StockFresh(ctx, sku, s.cfg.Freshness)
			if err != nil {
				return false, err
			}
			if fresh {
				return false, nil
			}

			qty, err := s.source.StockLevel(ctx, sku)
			if err != nil {
				return false, err
			}
			if err := s.store.SetStock(ctx, sku, qty); err != nil {
				return false, err
			}
			return true, nil
		},
		Describe: func(sku string) string { return sku },
	}

	return Run(ctx, s.engine, jobID, plan)
}
