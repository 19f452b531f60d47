package stages

import (
	"context"
	"log/slog"

	"github.com/mytankugift/catalog-sync/internal/catalog"
	"github.com/mytankugift/catalog-sync/internal/jobs"
	"github.com/mytankugift/catalog-sync/internal/supplier"
	"github.com/mytankugift/catalog-sync/internal/worker"
)

// publishStore is the slice of the catalog store the PUBLISH stage uses.
type publishStore interface {
	UnpublishedReady(ctx context.Context) ([]catalog.Product, error)
	IsPublished(ctx context.Context, sku string) (bool, error)
	MarkPublished(ctx context.Context, sku string) (bool, error)
}

// Publisher pushes enriched, not-yet-live products to the storefront
// channel. The storefront treats a duplicate push as a conflict, not an
// error, so a resumed run converges instead of double-publishing.
type Publisher struct {
	engine *Engine
	source supplier.Client
	store  publishStore
	logger *slog.Logger
}

// NewPublisher creates the PUBLISH stage executor.
func NewPublisher(engine *Engine, source supplier.Client, store publishStore, logger *slog.Logger) *Publisher {
	return &Publisher{engine: engine, source: source, store: store, logger: logger}
}

func (p *Publisher) Type() jobs.Type { return jobs.TypePublish }

func (p *Publisher) Run(ctx context.Context, jobID string) (*worker.Outcome, error) {
	plan := Plan[catalog.Product]{
		Load: p.store.UnpublishedReady,
		Process: func(ctx context.Context, product catalog.Product) (bool, error) {
			published, err := p.store.IsPublished(ctx, product.SKU)
			if err != nil {
				return false, err
			}
			if published {
				return false, nil
			}

			err = p.source.PublishProduct(ctx, supplier.PublishRequest{
				SKU:         product.SKU,
				Title:       product.Title,
				Description: product.Description.String,
				PriceCents:  product.PriceCents,
				Images:      product.Images,
			})
			if err != nil {
				return false, err
			}

			return p.store.MarkPublished(ctx, product.SKU)
		},
		Describe: func(product catalog.Product) string { return product.SKU },
	}

	return Run(ctx, p.engine, jobID, plan)
}
