package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/stacbg/internal/models"
)

// SQLiteHistory implements HistoryStore using SQLite.
type SQLiteHistory struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteHistory opens or creates the history database at dbPath.
// Parent directories are created if they do not exist.
func NewSQLiteHistory(dbPath string) (*SQLiteHistory, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %w", models.ErrStorage, err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", models.ErrStorage, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %w", models.ErrStorage, err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: initialize schema: %w", models.ErrStorage, err)
	}

	return &SQLiteHistory{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		collection TEXT NOT NULL,
		aoi_id TEXT NOT NULL DEFAULT '',
		is_aoi INTEGER NOT NULL DEFAULT 0,
		render_params TEXT NOT NULL DEFAULT '',
		image_path TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
	CREATE INDEX IF NOT EXISTS idx_generations_aoi_id ON generations(aoi_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Record inserts entry, filling in ID and CreatedAt when unset.
func (s *SQLiteHistory) Record(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (id, item_id, collection, aoi_id, is_aoi, render_params, image_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ItemID, entry.Collection, entry.AOIID, entry.IsAOI,
		entry.RenderParams, entry.ImagePath, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert history: %w", models.ErrStorage, err)
	}
	return nil
}

// List returns the most recent entries first. limit <= 0 returns all of them.
func (s *SQLiteHistory) List(ctx context.Context, limit int) ([]*models.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_id, collection, aoi_id, is_aoi, render_params, image_path, created_at
		 FROM generations ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list history: %w", models.ErrStorage, err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Collection, &e.AOIID, &e.IsAOI,
			&e.RenderParams, &e.ImagePath, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan history: %w", models.ErrStorage, err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded generations.
func (s *SQLiteHistory) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count history: %w", models.ErrStorage, err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}
