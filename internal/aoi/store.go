package aoi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/hyperjump/stacbg/internal/models"
)

// Store loads and saves the AOI feature collection.
type Store interface {
	Load(ctx context.Context) (Collection, error)
	Save(ctx context.Context, c Collection) error
}

// FileStore keeps the AOI collection in a GeoJSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the GeoJSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and parses the feature collection.
func (s *FileStore) Load(_ context.Context) (Collection, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Collection{}, fmt.Errorf("%w: read aoi collection: %w", models.ErrStorage, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Collection{}, fmt.Errorf("%w: parse aoi collection %s: %w", models.ErrStorage, s.path, err)
	}
	return collectionFromGeoJSON(fc), nil
}

// Save writes the collection back, indented with two spaces.
func (s *FileStore) Save(_ context.Context, c Collection) error {
	data, err := json.MarshalIndent(c.toGeoJSON(), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal aoi collection: %w", models.ErrStorage, err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("%w: write aoi collection: %w", models.ErrStorage, err)
	}
	return nil
}
