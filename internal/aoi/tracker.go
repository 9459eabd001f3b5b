package aoi

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/stacbg/internal/catalog"
	"github.com/hyperjump/stacbg/internal/models"
	"github.com/hyperjump/stacbg/internal/query"
)

// Tracker decides which catalog items are new for each AOI and records the
// ones that were actually used.
type Tracker struct {
	store  Store
	newID  func() string
	now    func() time.Time
	logger *zap.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

// WithClock overrides time.Now; used as the upper bound of search windows.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator overrides uuid-based AOI id assignment.
func WithIDGenerator(newID func() string) TrackerOption {
	return func(t *Tracker) { t.newID = newID }
}

// NewTracker creates a tracker over store.
func NewTracker(store Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:  store,
		newID:  uuid.NewString,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load returns the current AOI collection.
func (t *Tracker) Load(ctx context.Context) (Collection, error) {
	return t.store.Load(ctx)
}

// EnsureIdentifiers assigns an id to every AOI lacking one and saves the
// collection when anything changed. A second call performs no write.
func (t *Tracker) EnsureIdentifiers(ctx context.Context) (Collection, bool, error) {
	c, err := t.store.Load(ctx)
	if err != nil {
		return Collection{}, false, err
	}
	c, changed := c.WithIdentifiers(t.newID)
	if !changed {
		return c, false, nil
	}
	if err := t.store.Save(ctx, c); err != nil {
		return Collection{}, false, err
	}
	t.logger.Info("assigned aoi identifiers", zap.Int("features", len(c.Features)))
	return c, true, nil
}

// FindQualifyingItem asks the catalog for the most relevant item intersecting
// f within [windowStart, now] and returns it only if it is new for f.
func (t *Tracker) FindQualifyingItem(
	ctx context.Context,
	f Feature,
	collectionID string,
	predicates []models.FilterPredicate,
	windowStart time.Time,
	cat catalog.Catalog,
) (*models.CatalogItem, error) {
	if f.Geometry == nil {
		return nil, fmt.Errorf("%w: aoi %s has no geometry", models.ErrStorage, f.ID)
	}
	q := query.Base(collectionID, predicates).
		WithGeometry(f.Geometry).
		WithDatetimeAfter(windowStart, t.now())
	item, err := cat.First(ctx, q)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	dt, err := item.Datetime()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrExternalService, err)
	}
	ok, err := f.Accepts(dt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStorage, err)
	}
	if !ok {
		t.logger.Debug("aoi item already used",
			zap.String("aoi", f.ID),
			zap.String("item", item.ID),
			zap.Time("datetime", dt),
		)
		return nil, nil
	}
	t.logger.Info("found new item for aoi",
		zap.String("aoi", f.ID),
		zap.String("collection", collectionID),
		zap.String("item", item.ID),
	)
	return item, nil
}

// RecordUsage stores item's datetime as the AOI's last item datetime and saves
// the collection. Timestamps only move forward: an item not newer than the
// stored one leaves the collection untouched.
func (t *Tracker) RecordUsage(ctx context.Context, aoiID string, item *models.CatalogItem) (Feature, error) {
	dt, err := item.Datetime()
	if err != nil {
		return Feature{}, fmt.Errorf("%w: %w", models.ErrExternalService, err)
	}
	c, err := t.store.Load(ctx)
	if err != nil {
		return Feature{}, err
	}
	f, ok := c.Find(aoiID)
	if !ok {
		return Feature{}, fmt.Errorf("%w: aoi %s not found in collection", models.ErrStorage, aoiID)
	}
	newer, err := f.Accepts(dt)
	if err != nil {
		return Feature{}, fmt.Errorf("%w: %w", models.ErrStorage, err)
	}
	if !newer {
		return f, nil
	}
	f = f.WithLastItemTime(dt)
	if err := t.store.Save(ctx, c.Replace(f)); err != nil {
		return Feature{}, err
	}
	t.logger.Info("recorded aoi usage",
		zap.String("aoi", aoiID),
		zap.String("item", item.ID),
		zap.String(LastItemKey, models.FormatTimestamp(dt)),
	)
	return f, nil
}
