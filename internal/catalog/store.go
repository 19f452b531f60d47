// Package catalog persists the product data the pipeline stages produce:
// raw staged payloads from the supplier and the normalized products the
// storefront reads. Every mutation is written as a guarded upsert so a
// restarted stage re-running over processed rows is a no-op.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// StagedProduct is one raw supplier payload awaiting normalization.
type StagedProduct struct {
	SKU       string    `db:"sku"`
	Payload   []byte    `db:"payload"`
	Checksum  string    `db:"checksum"`
	FetchedAt time.Time `db:"fetched_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Product is a normalized catalog row.
type Product struct {
	SKU            string         `db:"sku"`
	Title          string         `db:"title"`
	PriceCents     int64          `db:"price_cents"`
	Currency       string         `db:"currency"`
	Description    sql.NullString `db:"description"`
	Brand          sql.NullString `db:"brand"`
	Images         pq.StringArray `db:"images"`
	PublishedAt    sql.NullTime   `db:"published_at"`
	StockQty       sql.NullInt32  `db:"stock_qty"`
	StockCheckedAt sql.NullTime   `db:"stock_checked_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// Store runs all catalog reads and writes for the stage executors.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store on an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// UpsertStaged writes one raw payload, keyed by SKU. Returns false when a
// row with the same checksum is already staged, so the RAW stage can
// count unchanged items as skipped.
func (s *Store) UpsertStaged(ctx context.Context, sku string, payload []byte, checksum string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO staged_products (sku, payload, checksum, fetched_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (sku) DO UPDATE
		SET payload = EXCLUDED.payload,
		    checksum = EXCLUDED.checksum,
		    updated_at = NOW()
		WHERE staged_products.checksum IS DISTINCT FROM EXCLUDED.checksum
	`, sku, payload, checksum)
	if err != nil {
		return false, fmt.Errorf("failed to stage product %s: %w", sku, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// StagedWithoutProduct returns the staged rows that have no normalized
// product yet, in stable SKU order.
func (s *Store) StagedWithoutProduct(ctx context.Context) ([]StagedProduct, error) {
	var rows []StagedProduct
	err := s.db.SelectContext(ctx, &rows, `
		SELECT s.sku, s.payload, s.checksum, s.fetched_at, s.updated_at
		FROM staged_products s
		LEFT JOIN products p ON p.sku = s.sku
		WHERE p.sku IS NULL
		ORDER BY s.sku
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unnormalized staged products: %w", err)
	}
	return rows, nil
}

// HasProduct reports whether a normalized product exists for the SKU.
func (s *Store) HasProduct(ctx context.Context, sku string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`, sku)
	if err != nil {
		return false, fmt.Errorf("failed to check product %s: %w", sku, err)
	}
	return exists, nil
}

// InsertProduct creates a normalized product row. Returns false when the
// SKU already exists (the insert is a no-op).
func (s *Store) InsertProduct(ctx context.Context, p *Product) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (sku, title, price_cents, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (sku) DO NOTHING
	`, p.SKU, p.Title, p.PriceCents, p.Currency)
	if err != nil {
		return false, fmt.Errorf("failed to insert product %s: %w", p.SKU, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SKUsMissingDetail returns the products still lacking enrichment fields.
func (s *Store) SKUsMissingDetail(ctx context.Context) ([]string, error) {
	var skus []string
	err := s.db.SelectContext(ctx, &skus, `
		SELECT sku FROM products WHERE description IS NULL ORDER BY sku
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products missing detail: %w", err)
	}
	return skus, nil
}

// NeedsDetail reports whether the product still lacks enrichment fields.
// ErrNotFound is mapped to false so a row deleted out-of-band reads as
// nothing to do.
func (s *Store) NeedsDetail(ctx context.Context, sku string) (bool, error) {
	var needs bool
	err := s.db.GetContext(ctx, &needs, `SELECT description IS NULL FROM products WHERE sku = $1`, sku)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check detail of %s: %w", sku, err)
	}
	return needs, nil
}

// SetDetail writes the enrichment fields. The guard on description keeps
// a concurrent or repeated enrich run from overwriting existing detail;
// returns false when nothing was written.
func (s *Store) SetDetail(ctx context.Context, sku, description, brand string, images []string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET description = $1,
		    brand = NULLIF($2, ''),
		    images = $3,
		    updated_at = NOW()
		WHERE sku = $4 AND description IS NULL
	`, description, brand, pq.StringArray(images), sku)
	if err != nil {
		return false, fmt.Errorf("failed to set detail of %s: %w", sku, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UnpublishedReady returns enriched products not yet pushed to the
// storefront.
func (s *Store) UnpublishedReady(ctx context.Context) ([]Product, error) {
	var rows []Product
	err := s.db.SelectContext(ctx, &rows, `
		SELECT sku, title, price_cents, currency, description, brand, images,
		       published_at, stock_qty, stock_checked_at, created_at, updated_at
		FROM products
		WHERE description IS NOT NULL AND published_at IS NULL
		ORDER BY sku
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpublished products: %w", err)
	}
	return rows, nil
}

// IsPublished reports whether the product already went live.
func (s *Store) IsPublished(ctx context.Context, sku string) (bool, error) {
	var published bool
	err := s.db.GetContext(ctx, &published, `SELECT published_at IS NOT NULL FROM products WHERE sku = $1`, sku)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("failed to check published state: product %s does not exist", sku)
		}
		return false, fmt.Errorf("failed to check published state of %s: %w", sku, err)
	}
	return published, nil
}

// MarkPublished stamps published_at once; returns false when the product
// was already published.
func (s *Store) MarkPublished(ctx context.Context, sku string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET published_at = NOW(), updated_at = NOW()
		WHERE sku = $1 AND published_at IS NULL
	`, sku)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s published: %w", sku, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// PublishedSKUs returns the products whose stock is kept fresh.
func (s *Store) PublishedSKUs(ctx context.Context) ([]string, error) {
	var skus []string
	err := s.db.SelectContext(ctx, &skus, `
		SELECT sku FROM products WHERE published_at IS NOT NULL ORDER BY sku
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list published products: %w", err)
	}
	return skus, nil
}

// StockFresh reports whether the stock quantity was checked within
// maxAge, in which case a stock-refresh run skips the SKU.
func (s *Store) StockFresh(ctx context.Context, sku string, maxAge time.Duration) (bool, error) {
	var fresh bool
	err := s.db.GetContext(ctx, &fresh, `
		SELECT stock_checked_at IS NOT NULL AND stock_checked_at > NOW() - make_interval(secs => $1)
		FROM products
		WHERE sku = $2
	`, maxAge.Seconds(), sku)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check stock freshness of %s: %w", sku, err)
	}
	return fresh, nil
}

// SetStock records a stock quantity and the check time.
func (s *Store) SetStock(ctx context.Context, sku string, qty int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock_qty = $1,
		    stock_checked_at = NOW(),
		    updated_at = NOW()
		WHERE sku = $2
	`, qty, sku)
	if err != nil {
		return fmt.Errorf("failed to set stock of %s: %w", sku, err)
	}
	return nil
}
