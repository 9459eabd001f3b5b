// Package storage persists the generation record and the run history.
package storage

import (
	"context"

	"github.com/hyperjump/stacbg/internal/models"
)

// RecordStore holds the single record describing the current background.
type RecordStore interface {
	// Load returns nil, nil when no record has been written yet.
	Load(ctx context.Context) (*models.GenerationRecord, error)
	Save(ctx context.Context, rec *models.GenerationRecord) error
}

// HistoryStore appends and lists past generations.
type HistoryStore interface {
	Record(ctx context.Context, entry *models.HistoryEntry) error
	List(ctx context.Context, limit int) ([]*models.HistoryEntry, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
