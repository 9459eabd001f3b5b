// Package selector picks the catalog item a background is rendered from.
//
// AOI hits always win: the random pool is only searched when no AOI in any
// collection produced a new item.
package selector

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/hyperjump/stacbg/internal/aoi"
	"github.com/hyperjump/stacbg/internal/catalog"
	"github.com/hyperjump/stacbg/internal/models"
	"github.com/hyperjump/stacbg/internal/query"
)

// Candidate is an item eligible to become the target, with the AOI that
// produced it when it came from AOI matching.
type Candidate struct {
	Item        models.CatalogItem
	AOIID       string
	AOIGeometry orb.Geometry
}

// FromAOI reports whether the candidate came from AOI matching.
func (c Candidate) FromAOI() bool {
	return c.AOIID != ""
}

// Selection is the pool a target is drawn from.
type Selection struct {
	Pool    []Candidate
	FromAOI bool
	// Capped lists collections whose random search returned exactly the
	// configured maximum, so the real population may be larger.
	Capped []string
}

// Selector builds candidate pools from the configured collections.
type Selector struct {
	catalog     catalog.Catalog
	collections []models.CollectionSpec
	tracker     *aoi.Tracker
	maxResults  int
	rng         *rand.Rand
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithAOIs enables AOI matching through tracker.
func WithAOIs(tracker *aoi.Tracker) Option {
	return func(s *Selector) { s.tracker = tracker }
}

// WithRand sets the randomness source used by Choose.
func WithRand(r *rand.Rand) Option {
	return func(s *Selector) { s.rng = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) { s.now = now }
}

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Selector) { s.logger = l }
}

// New creates a selector over collections. maxResults bounds each random search.
func New(cat catalog.Catalog, collections []models.CollectionSpec, maxResults int, opts ...Option) *Selector {
	s := &Selector{
		catalog:     cat,
		collections: collections,
		maxResults:  maxResults,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns the AOI pool when any AOI has a new item, else the random pool.
func (s *Selector) Select(ctx context.Context) (Selection, error) {
	if s.tracker != nil {
		pool, err := s.aoiPool(ctx)
		if err != nil {
			return Selection{}, err
		}
		if len(pool) > 0 {
			return Selection{Pool: pool, FromAOI: true}, nil
		}
	}
	return s.randomPool(ctx)
}

func (s *Selector) aoiPool(ctx context.Context) ([]Candidate, error) {
	features, err := s.tracker.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("finding items that intersect aois", zap.Int("aois", len(features.Features)))
	var pool []Candidate
	for _, coll := range s.collections {
		start := s.windowStart(coll)
		for _, f := range features.Features {
			item, err := s.tracker.FindQualifyingItem(ctx, f, coll.ID, coll.Filters, start, s.catalog)
			if err != nil {
				return nil, fmt.Errorf("aoi %s in %s: %w", f.ID, coll.ID, err)
			}
			if item == nil {
				continue
			}
			pool = append(pool, Candidate{Item: *item, AOIID: f.ID, AOIGeometry: f.Geometry})
		}
	}
	return pool, nil
}

func (s *Selector) randomPool(ctx context.Context) (Selection, error) {
	var sel Selection
	for _, coll := range s.collections {
		s.logger.Info("finding random items", zap.String("collection", coll.ID))
		q := query.Base(coll.ID, coll.Filters).WithDatetimeAfter(s.windowStart(coll), s.now())
		items, err := s.catalog.Search(ctx, q, s.maxResults)
		if err != nil {
			return Selection{}, fmt.Errorf("search %s: %w", coll.ID, err)
		}
		if len(items) == 0 {
			s.logger.Warn("no items found, skipping collection", zap.String("collection", coll.ID))
			continue
		}
		capped := s.maxResults > 0 && len(items) == s.maxResults
		if capped {
			sel.Capped = append(sel.Capped, coll.ID)
		}
		s.logger.Info("found items",
			zap.String("collection", coll.ID),
			zap.Int("count", len(items)),
			zap.Bool("limit_hit", capped),
		)
		for _, it := range items {
			sel.Pool = append(sel.Pool, Candidate{Item: it})
		}
	}
	return sel, nil
}

// Choose draws one candidate uniformly at random.
func (s *Selector) Choose(sel Selection) (Candidate, error) {
	if len(sel.Pool) == 0 {
		return Candidate{}, models.ErrNoTargetItem
	}
	return sel.Pool[s.rng.IntN(len(sel.Pool))], nil
}

func (s *Selector) windowStart(coll models.CollectionSpec) time.Time {
	return s.now().UTC().AddDate(0, 0, -coll.SearchDays)
}
