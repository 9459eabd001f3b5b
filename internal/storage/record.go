package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/stacbg/internal/models"
)

// RecordFile is a RecordStore backed by a JSON file.
type RecordFile struct {
	path string
}

// NewRecordFile returns a store for the record at path.
func NewRecordFile(path string) *RecordFile {
	return &RecordFile{path: path}
}

// Path returns the file location.
func (f *RecordFile) Path() string { return f.path }

// Load reads the record. A missing file is not an error.
func (f *RecordFile) Load(_ context.Context) (*models.GenerationRecord, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read record %s: %w", models.ErrStorage, f.path, err)
	}
	var rec models.GenerationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: parse record %s: %w", models.ErrStorage, f.path, err)
	}
	return &rec, nil
}

// Save replaces the record on disk.
func (f *RecordFile) Save(_ context.Context, rec *models.GenerationRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode record: %w", models.ErrStorage, err)
	}
	data = append(data, '\n')
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create record directory: %w", models.ErrStorage, err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: write record %s: %w", models.ErrStorage, f.path, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replace record %s: %w", models.ErrStorage, f.path, err)
	}
	return nil
}
