//go:build !linux && !darwin

package policy

import "os"

// Without platform stat fields access time is unknown, so access-driven
// staleness never triggers and only the max-age rule applies.
func fileTimestamps(info os.FileInfo) Timestamps {
	return Timestamps{Created: info.ModTime(), Accessed: info.ModTime()}
}
