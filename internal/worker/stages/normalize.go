package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"

	"github.com/mytankugift/catalog-sync/internal/catalog"
	"github.com/mytankugift/catalog-sync/internal/jobs"
	"github.com/mytankugift/catalog-sync/internal/supplier"
	"github.com/mytankugift/catalog-sync/internal/worker"
)

// normalizeStore is the slice of the catalog store the NORMALIZE stage
// reads and writes.
type normalizeStore interface {
	StagedWithoutProduct(ctx context.Context) ([]catalog.StagedProduct, error)
	HasProduct(ctx context.Context, sku string) (bool, error)
	InsertProduct(ctx context.Context, p *catalog.Product) (bool, error)
}

// NormalizeConfig is the NORMALIZE stage's own configuration shape.
type NormalizeConfig struct {
	DefaultCurrency string
}

// Normalizer turns staged supplier payloads into normalized product rows.
type Normalizer struct {
	engine *Engine
	store  normalizeStore
	logger *slog.Logger
	cfg    NormalizeConfig
}

// NewNormalizer creates the NORMALIZE stage executor.
func NewNormalizer(engine *Engine, store normalizeStore, logger *slog.Logger, cfg NormalizeConfig) *Normalizer {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	return &Normalizer{engine: engine, store: store, logger: logger, cfg: cfg}
}

func (n *Normalizer) Type() jobs.Type { return jobs.TypeNormalize }

func (n *Normalizer) Run(ctx context.Context, jobID string) (*worker.Outcome, error) {
	plan := Plan[catalog.StagedProduct]{
		Load: n.store.StagedWithoutProduct,
		Process: func(ctx context.Context, staged catalog.StagedProduct) (bool, error) {
			exists, err := n.store.HasProduct(ctx, staged.SKU)
			if err != nil {
				return false, err
			}
			if exists {
				return false, nil
			}

			product, err := normalize(staged, n.cfg.DefaultCurrency)
			if err != nil {
				// A malformed payload will not get better on retry.
				return false, backoff.Permanent(err)
			}

			return n.store.InsertProduct(ctx, product)
		},
		Describe: func(staged catalog.StagedProduct) string { return staged.SKU },
	}

	return Run(ctx, n.engine, jobID, plan)
}

// normalize maps one staged supplier payload to a product row.
func normalize(staged catalog.StagedProduct, defaultCurrency string) (*catalog.Product, error) {
	var listing supplier.Listing
	if err := json.Unmarshal(staged.Payload, &listing); err != nil {
		return nil, fmt.Errorf("malformed staged payload: %w", err)
	}

	if listing.SKU == "" || listing.Title == "" {
		return nil, fmt.Errorf("staged payload for %s is missing sku or title", staged.SKU)
	}
	if listing.PriceCents < 0 {
		return nil, fmt.Errorf("staged payload for %s has negative price", staged.SKU)
	}

	currency := listing.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	return &catalog.Product{
		SKU:        listing.SKU,
		Title:      listing.Title,
		PriceCents: listing.PriceCents,
		Currency:   currency,
	}, nil
}
