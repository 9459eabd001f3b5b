package models

import "errors"

// Failure kinds. Every error returned by a run wraps exactly one of these so the
// CLI can classify it with errors.Is. None of them is recovered locally.
var (
	// ErrConfiguration indicates invalid or missing settings.
	ErrConfiguration = errors.New("configuration error")

	// ErrNoTargetItem indicates both the AOI pool and the random pool were empty.
	ErrNoTargetItem = errors.New("no target item found")

	// ErrMissingGeometry indicates the chosen item has no geometry and no AOI to fall back on.
	ErrMissingGeometry = errors.New("item has no geometry")

	// ErrExternalService indicates a catalog, render or image fetch failure.
	ErrExternalService = errors.New("external service error")

	// ErrStorage indicates a read or write failure of the AOI store, the
	// generation record, the history database or the output images.
	ErrStorage = errors.New("storage error")
)
