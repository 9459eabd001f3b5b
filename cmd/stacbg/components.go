package main

import (
	"errors"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/stacbg/internal/aoi"
	"github.com/hyperjump/stacbg/internal/catalog"
	"github.com/hyperjump/stacbg/internal/config"
	"github.com/hyperjump/stacbg/internal/generator"
	"github.com/hyperjump/stacbg/internal/render"
	"github.com/hyperjump/stacbg/internal/storage"
)

// newGenerator wires a generator from settings. history may be nil.
func newGenerator(cfg *config.Settings, logger *zap.Logger, history *storage.SQLiteHistory) *generator.Generator {
	httpClient := &http.Client{Timeout: cfg.Timeout()}
	cat := catalog.NewClient(cfg.APIs.STAC,
		catalog.WithHTTPClient(httpClient),
		catalog.WithRateLimit(cfg.RequestsPerSec),
		catalog.WithLogger(logger),
	)
	renderer := render.NewClient(cfg.APIs.Info, cfg.APIs.Image,
		render.WithHTTPClient(httpClient),
		render.WithLogger(logger),
	)

	opts := []generator.Option{generator.WithLogger(logger)}
	if history != nil {
		opts = append(opts, generator.WithHistory(history))
	}
	if cfg.AOIs != nil {
		tracker := aoi.NewTracker(aoi.NewFileStore(cfg.AOIs.FeatureCollectionPath), aoi.WithLogger(logger))
		opts = append(opts, generator.WithAOIs(tracker))
	}
	return generator.New(cfg, cat, renderer, storage.NewRecordFile(cfg.ImageInfoPath), opts...)
}

// openHistory opens the history database. Unless create is set, a missing
// database is not created and (nil, nil) is returned.
func openHistory(path string, create bool) (*storage.SQLiteHistory, error) {
	if !create {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
	}
	return storage.NewSQLiteHistory(path)
}
