// Package supplier is the boundary to the external product data source.
// Every call is fallible and individually retryable; the stage executors
// wrap them in their own retry policy.
package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Listing is one product summary from the supplier's paginated catalog.
type Listing struct {
	SKU        string `json:"sku"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
}

// Page is one page of listings plus the catalog-wide total.
type Page struct {
	Items []Listing `json:"items"`
	Total int       `json:"total"`
}

// Detail carries the per-item fields not present in listings.
type Detail struct {
	SKU         string   `json:"sku"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	Images      []string `json:"images"`
}

// PublishRequest pushes one finished product to the storefront channel.
type PublishRequest struct {
	SKU         string   `json:"sku"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_cents"`
	Images      []string `json:"images"`
}

// Client is the supplier API surface the stage executors consume.
type Client interface {
	// Listings fetches one page of the supplier catalog. Pages are
	// 1-based.
	Listings(ctx context.Context, page, perPage int) (*Page, error)

	// Detail fetches the enrichment fields for one SKU.
	Detail(ctx context.Context, sku string) (*Detail, error)

	// PublishProduct pushes one product to the storefront channel.
	PublishProduct(ctx context.Context, req PublishRequest) error

	// StockLevel returns the current stock quantity for one SKU.
	StockLevel(ctx context.Context, sku string) (int, error)
}

// HTTPClient implements Client against the supplier's REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a supplier client for the given base URL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Listings(ctx context.Context, page, perPage int) (*Page, error) {
	endpoint := fmt.Sprintf("%s/v1/listings?page=%d&per_page=%d", c.baseURL, page, perPage)

	var result Page
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch listings page %d: %w", page, err)
	}
	return &result, nil
}

func (c *HTTPClient) Detail(ctx context.Context, sku string) (*Detail, error) {
	endpoint := fmt.Sprintf("%s/v1/products/%s", c.baseURL, url.PathEscape(sku))

	var result Detail
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch detail for %s: %w", sku, err)
	}
	return &result, nil
}

func (c *HTTPClient) PublishProduct(ctx context.Context, req PublishRequest) error {
	endpoint := c.baseURL + "/v1/storefront/products"

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode publish request for %s: %w", req.SKU, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to publish product %s: %w", req.SKU, err)
	}
	defer resp.Body.Close()

	// 409 means the product is already live, which callers treat as
	// satisfied rather than failed.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("failed to publish product %s: unexpected status %d", req.SKU, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) StockLevel(ctx context.Context, sku string) (int, error) {
	endpoint := fmt.Sprintf("%s/v1/stock/%s", c.baseURL, url.PathEscape(sku))

	var result struct {
		SKU      string `json:"sku"`
		Quantity int    `json:"quantity"`
	}
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return 0, fmt.Errorf("failed to fetch stock for %s: %w", sku, err)
	}
	return result.Quantity, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
