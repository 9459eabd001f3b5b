package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/stacbg/internal/models"
)

// Artifact is one file the generator maintains.
type Artifact struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
	Bytes  int64  `json:"bytes"`
}

// Artifacts stats each path. Empty paths are skipped; a missing path is
// reported with Exists false. Directories are summed recursively.
func Artifacts(paths ...string) ([]Artifact, int64, error) {
	var (
		out   []Artifact
		total int64
	)
	for _, p := range paths {
		if p == "" {
			continue
		}
		a := Artifact{Path: p}
		info, err := os.Stat(p)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, 0, fmt.Errorf("%w: stat %s: %w", models.ErrStorage, p, err)
		case info.IsDir():
			n, err := dirSize(p)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: walk %s: %w", models.ErrStorage, p, err)
			}
			a.Exists, a.Bytes = true, n
		default:
			a.Exists, a.Bytes = true, info.Size()
		}
		total += a.Bytes
		out = append(out, a)
	}
	return out, total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
