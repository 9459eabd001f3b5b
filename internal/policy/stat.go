package policy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/hyperjump/stacbg/internal/models"
)

// Timestamps are the creation and last access times of a file. What
// "creation" means depends on the platform: inode change time on Linux,
// birth time on macOS, modification time elsewhere.
type Timestamps struct {
	Created  time.Time `json:"created"`
	Accessed time.Time `json:"accessed"`
}

// StatFunc reports a file's timestamps and whether it exists.
type StatFunc func(path string) (Timestamps, bool, error)

// Stat is the StatFunc for the local filesystem.
func Stat(path string) (Timestamps, bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Timestamps{}, false, nil
	}
	if err != nil {
		return Timestamps{}, false, fmt.Errorf("%w: stat %s: %w", models.ErrStorage, path, err)
	}
	return fileTimestamps(info), true, nil
}
