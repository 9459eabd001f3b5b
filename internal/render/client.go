package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	// Decoders for whatever the image endpoint hands back.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/hyperjump/stacbg/internal/models"
	"github.com/hyperjump/stacbg/internal/query"
)

const (
	maxErrorBody = 4 << 10
	maxImageSize = 64 << 20

	defaultPresetCacheSize = 16
)

// Preset is a named set of render parameters offered for a collection.
type Preset struct {
	Name    string `json:"name"`
	Options string `json:"options"`
}

// Request is the body posted to the image endpoint.
type Request struct {
	CQL          query.Query `json:"cql"`
	RenderParams string      `json:"render_params"`
	Cols         int         `json:"cols"`
	Rows         int         `json:"rows"`
}

// Service is what the orchestrator needs from the tiling service.
type Service interface {
	Preset(ctx context.Context, collectionID, name string) (string, error)
	RequestRender(ctx context.Context, req Request) (string, error)
	Fetch(ctx context.Context, imageURL string) (image.Image, error)
}

// Client is a Service over the info and image HTTP endpoints.
type Client struct {
	infoURL  string
	imageURL string
	client   *http.Client
	logger   *zap.Logger
	presets  *presetCache
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

// WithPresetCache sets how many collections' presets are kept in memory.
// Zero disables caching.
func WithPresetCache(size int) ClientOption {
	return func(c *Client) { c.presets = newPresetCache(size) }
}

// NewClient creates a client for the given info and image endpoints.
func NewClient(infoURL, imageURL string, opts ...ClientOption) *Client {
	c := &Client{
		infoURL:  infoURL,
		imageURL: imageURL,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   zap.NewNop(),
		presets:  newPresetCache(defaultPresetCacheSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Presets returns the render presets the service offers for collectionID.
// Successful lookups are cached for the lifetime of the client.
func (c *Client) Presets(ctx context.Context, collectionID string) ([]Preset, error) {
	if p, ok := c.presets.get(collectionID); ok {
		return p, nil
	}
	u, err := url.Parse(c.infoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid info url: %w", models.ErrConfiguration, err)
	}
	q := u.Query()
	q.Set("collection", collectionID)
	u.RawQuery = q.Encode()

	var info struct {
		RenderOptions []Preset `json:"renderOptions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, u.String(), nil, &info); err != nil {
		return nil, fmt.Errorf("%w: fetch render presets for %s: %w", models.ErrExternalService, collectionID, err)
	}
	c.presets.set(collectionID, info.RenderOptions)
	return info.RenderOptions, nil
}

// Preset returns the options of the preset called name, or of the service's
// first preset when name is empty or unknown.
func (c *Client) Preset(ctx context.Context, collectionID, name string) (string, error) {
	presets, err := c.Presets(ctx, collectionID)
	if err != nil {
		return "", err
	}
	return choosePreset(presets, name, collectionID, c.logger)
}

func choosePreset(presets []Preset, name, collectionID string, logger *zap.Logger) (string, error) {
	if name != "" {
		for _, p := range presets {
			if p.Name == name {
				return p.Options, nil
			}
		}
		logger.Warn("render preset not found, using default",
			zap.String("collection", collectionID),
			zap.String("preset", name),
		)
	}
	if len(presets) == 0 {
		return "", fmt.Errorf("%w: no render presets for %s", models.ErrExternalService, collectionID)
	}
	return presets[0].Options, nil
}

// RequestRender submits a render request and returns the URL of the result.
func (c *Client) RequestRender(ctx context.Context, req Request) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.imageURL, req, &out); err != nil {
		return "", fmt.Errorf("%w: request render: %w", models.ErrExternalService, err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: render response has no url", models.ErrExternalService)
	}
	c.logger.Debug("render ready", zap.String("url", out.URL))
	return out.URL, nil
}

// Fetch downloads and decodes the image at imageURL.
func (c *Client) Fetch(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", models.ErrExternalService, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch image: %w", models.ErrExternalService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: fetch image: server returned %d: %s",
			models.ErrExternalService, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	img, format, err := image.Decode(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %w", models.ErrExternalService, err)
	}
	c.logger.Debug("image fetched", zap.String("format", format), zap.Stringer("bounds", img.Bounds()))
	return img, nil
}

func (c *Client) doJSON(ctx context.Context, method, href string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, href, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
