package stages

import (
	"context"
	"log/slog"

	"github.com/mytankugift/catalog-sync/internal/jobs"
	"github.com/mytankugift/catalog-sync/internal/supplier"
	"github.com/mytankugift/catalog-sync/internal/worker"
)

// enrichStore is the slice of the catalog store the ENRICH stage uses.
type enrichStore interface {
	SKUsMissingDetail(ctx context.Context) ([]string, error)
	NeedsDetail(ctx context.Context, sku string) (bool, error)
	SetDetail(ctx context.Context, sku, description, brand string, images []string) (bool, error)
}

// Enricher fills in the per-product detail fields (description, brand,
// images) by calling the supplier's detail endpoint once per SKU. This
// is the chattiest stage against the supplier, so it leans hardest on
// the engine's inter-batch pause.
type Enricher struct {
	engine *Engine
	source supplier.Client
	store  enrichStore
	logger *slog.Logger
}

// NewEnricher creates the ENRICH stage executor.
func NewEnricher(engine *Engine, source supplier.Client, store enrichStore, logger *slog.Logger) *Enricher {
	return &Enricher{engine: engine, source: source, store: store, logger: logger}
}

func (e *Enricher) Type() jobs.Type { return jobs.TypeEnrich }

func (e *Enricher) Run(ctx context.Context, jobID string) (*worker.Outcome, error) {
	plan := Plan[string]{
		Load: e.store.SKUsMissingDetail,
		Process: func(ctx context.Context, sku string) (bool, error) {
			needs, err := e.store.NeedsDetail(ctx, sku)
			if err != nil {
				return false, err
			}
			if !needs {
				return false, nil
			}

			detail, err := e.source.Detail(ctx, sku)
			if err != nil {
				return false, err
			}

			return e.store.SetDetail(ctx, sku, detail.Description, detail.Brand, detail.Images)
		},
		Describe: func(sku string) string { return sku },
	}

	return Run(ctx, e.engine, jobID, plan)
}
