package catalog

import (
	"context"

	"github.com/hyperjump/stacbg/internal/models"
	"github.com/hyperjump/stacbg/internal/query"
)

// Func adapts a search function to the Catalog interface. Handy for tests and
// for wrapping catalogs with extra behavior.
type Func func(ctx context.Context, q query.Query, maxItems int) ([]models.CatalogItem, error)

// First returns the first result of f, or nil.
func (f Func) First(ctx context.Context, q query.Query) (*models.CatalogItem, error) {
	items, err := f(ctx, q, 1)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

// Search calls f.
func (f Func) Search(ctx context.Context, q query.Query, maxItems int) ([]models.CatalogItem, error) {
	return f(ctx, q, maxItems)
}
