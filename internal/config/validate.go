package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/hyperjump/stacbg/internal/models"
)

// Validate checks cfg after defaults have been applied. All problems are
// reported together, wrapped in models.ErrConfiguration.
func Validate(cfg *Settings) error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.ImageFolder == "" {
		fail("image_folder is required")
	}
	if len(cfg.Collections) == 0 {
		fail("at least one collection is required")
	}
	seen := make(map[string]bool, len(cfg.Collections))
	for i, c := range cfg.Collections {
		switch {
		case c.ID == "":
			fail("collections[%d]: id is required", i)
		case seen[c.ID]:
			fail("collections[%d]: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = true
		if c.SearchDays < 0 {
			fail("collections[%d]: search_days must be positive", i)
		}
		for j, f := range c.Filters {
			if f.Property == "" || f.Op == "" {
				fail("collections[%d].filters[%d]: property and op are required", i, j)
			}
		}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		fail("width and height must be positive")
	}
	if cfg.ThumbnailWidth <= 0 || cfg.ThumbnailHeight <= 0 {
		fail("thumbnail_width and thumbnail_height must be positive")
	}
	for _, api := range []struct{ name, raw string }{
		{"apis.stac", cfg.APIs.STAC},
		{"apis.info", cfg.APIs.Info},
		{"apis.image", cfg.APIs.Image},
	} {
		if u, err := url.Parse(api.raw); err != nil || u.Scheme == "" || u.Host == "" {
			fail("%s must be an absolute URL, got %q", api.name, api.raw)
		}
	}
	if cfg.MaxSearchResults < 0 {
		fail("max_search_results must be positive")
	}
	if cfg.AOIs != nil {
		if cfg.AOIs.FeatureCollectionPath == "" {
			fail("aois.feature_collection_path is required")
		} else if _, err := os.Stat(cfg.AOIs.FeatureCollectionPath); err != nil {
			fail("feature collection path %s does not exist", cfg.AOIs.FeatureCollectionPath)
		}
		if cfg.AOIs.RefreshDays < 0 {
			fail("aois.refresh_days must be positive")
		}
	}
	if _, err := cfg.ForceRegenAge(time.Now()); err != nil {
		fail("force_regen_after: %w", err)
	}
	if d, err := time.ParseDuration(cfg.RequestTimeout); err != nil || d <= 0 {
		fail("request_timeout must be a positive duration, got %q", cfg.RequestTimeout)
	}
	if cfg.RequestsPerSec < 0 {
		fail("requests_per_second must not be negative")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", models.ErrConfiguration, errors.Join(errs...))
}
