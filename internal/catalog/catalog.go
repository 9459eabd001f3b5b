// Package catalog provides a STAC API search client.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/stacbg/internal/models"
	"github.com/hyperjump/stacbg/internal/query"
)

const (
	defaultPageSize = 100
	maxErrorBody    = 4 << 10
)

// Catalog searches a STAC catalog. Items come back in the catalog's default
// relevance/recency order.
type Catalog interface {
	// First returns the first matching item, or nil when nothing matches.
	First(ctx context.Context, q query.Query) (*models.CatalogItem, error)
	// Search returns up to maxItems matching items.
	Search(ctx context.Context, q query.Query, maxItems int) ([]models.CatalogItem, error)
}

// Client is a Catalog backed by a STAC API /search endpoint.
type Client struct {
	searchURL string
	client    *http.Client
	limiter   *rate.Limiter
	pageSize  int
	logger    *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a logger for request tracing.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

// WithRateLimit paces outgoing requests; rps <= 0 disables pacing.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithPageSize sets the page size requested from the API.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient creates a client for the STAC API rooted at apiURL.
func NewClient(apiURL string, opts ...ClientOption) *Client {
	c := &Client{
		searchURL: strings.TrimRight(apiURL, "/") + "/search",
		client:    &http.Client{Timeout: 60 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(5), 1),
		pageSize:  defaultPageSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type itemCollection struct {
	Features []models.CatalogItem `json:"features"`
	Links    []models.Link        `json:"links"`
}

// First returns the first matching item, or nil.
func (c *Client) First(ctx context.Context, q query.Query) (*models.CatalogItem, error) {
	items, err := c.Search(ctx, q, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// Search pages through results until maxItems are collected or the API runs
// out of pages.
func (c *Client) Search(ctx context.Context, q query.Query, maxItems int) ([]models.CatalogItem, error) {
	limit := c.pageSize
	if maxItems > 0 && maxItems < limit {
		limit = maxItems
	}
	method, href, body := http.MethodPost, c.searchURL, q.SearchBody(limit)

	var items []models.CatalogItem
	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, method, href, body)
		if err != nil {
			return nil, fmt.Errorf("%w: catalog search: %w", models.ErrExternalService, err)
		}
		c.logger.Debug("catalog page",
			zap.Int("page", page),
			zap.Int("features", len(resp.Features)),
		)
		items = append(items, resp.Features...)
		if maxItems > 0 && len(items) >= maxItems {
			return items[:maxItems], nil
		}
		next := nextLink(resp.Links)
		if next == nil || len(resp.Features) == 0 {
			return items, nil
		}
		method, href, body = http.MethodGet, next.Href, nil
		if strings.EqualFold(next.Method, http.MethodPost) {
			method = http.MethodPost
			body = next.Body
			if next.Merge || body == nil {
				body = mergeBody(q.SearchBody(limit), next.Body)
			}
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, method, href string, body map[string]interface{}) (*itemCollection, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, href, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out itemCollection
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func nextLink(links []models.Link) *models.Link {
	for i := range links {
		if links[i].Rel == "next" {
			return &links[i]
		}
	}
	return nil
}

func mergeBody(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
