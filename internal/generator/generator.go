// Package generator runs one background generation: decide, select, render,
// persist.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/hyperjump/stacbg/internal/aoi"
	"github.com/hyperjump/stacbg/internal/catalog"
	"github.com/hyperjump/stacbg/internal/config"
	"github.com/hyperjump/stacbg/internal/models"
	"github.com/hyperjump/stacbg/internal/policy"
	"github.com/hyperjump/stacbg/internal/query"
	"github.com/hyperjump/stacbg/internal/render"
	"github.com/hyperjump/stacbg/internal/selector"
	"github.com/hyperjump/stacbg/internal/storage"
)

// Result describes what a Generate call did.
type Result struct {
	Generated     bool                     `json:"generated"`
	Reason        string                   `json:"reason"`
	Record        *models.GenerationRecord `json:"record,omitempty"`
	ImagePath     string                   `json:"image_path,omitempty"`
	ThumbnailPath string                   `json:"thumbnail_path,omitempty"`
	Capped        []string                 `json:"capped,omitempty"`
}

// Generator renders a new background when the policy asks for one.
type Generator struct {
	cfg      *config.Settings
	catalog  catalog.Catalog
	renderer render.Service
	records  storage.RecordStore
	history  storage.HistoryStore
	tracker  *aoi.Tracker
	stat     policy.StatFunc
	rng      *rand.Rand
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand sets the randomness source used to pick the target.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithStat replaces the file timestamp lookup.
func WithStat(stat policy.StatFunc) Option {
	return func(g *Generator) { g.stat = stat }
}

// WithHistory appends a row to h after every generation.
func WithHistory(h storage.HistoryStore) Option {
	return func(g *Generator) { g.history = h }
}

// WithAOIs enables AOI matching and usage tracking through t.
func WithAOIs(t *aoi.Tracker) Option {
	return func(g *Generator) { g.tracker = t }
}

// New creates a generator for cfg.
func New(cfg *config.Settings, cat catalog.Catalog, renderer render.Service, records storage.RecordStore, opts ...Option) *Generator {
	g := &Generator{
		cfg:      cfg,
		catalog:  cat,
		renderer: renderer,
		records:  records,
		stat:     policy.Stat,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check evaluates the regeneration policy against the current image and
// record without changing anything.
func (g *Generator) Check(ctx context.Context) (policy.Decision, *models.GenerationRecord, error) {
	ts, exists, err := g.stat(g.cfg.ImagePath())
	if err != nil {
		return policy.Decision{}, nil, err
	}
	rec, err := g.records.Load(ctx)
	if err != nil {
		return policy.Decision{}, nil, err
	}
	now := g.now()
	age, err := g.cfg.ForceRegenAge(now)
	if err != nil {
		return policy.Decision{}, nil, fmt.Errorf("%w: force_regen_after: %w", models.ErrConfiguration, err)
	}
	d := policy.Decide(policy.Input{
		ImageExists:     exists,
		Image:           ts,
		Record:          rec,
		AOIsConfigured:  g.tracker != nil,
		RefreshDays:     g.cfg.RefreshDays(),
		ForceRegenAfter: age,
		Now:             now,
	})
	return d, rec, nil
}

// Generate renders and stores a new background. AOIs without an id get one
// first, on every run. Unless force is set it then asks the policy and returns
// without further side effects when no new image is due.
func (g *Generator) Generate(ctx context.Context, force bool) (Result, error) {
	if g.tracker != nil {
		if _, _, err := g.tracker.EnsureIdentifiers(ctx); err != nil {
			return Result{}, err
		}
	}

	reason := "forced"
	if force {
		g.logger.Info("forcing regeneration")
	} else {
		d, _, err := g.Check(ctx)
		if err != nil {
			return Result{}, err
		}
		if !d.Regenerate {
			g.logger.Info("no need to generate new background", zap.String("reason", d.Reason))
			return Result{Reason: d.Reason}, nil
		}
		reason = d.Reason
		g.logger.Info("generating new background", zap.String("reason", reason))
	}

	target, capped, err := g.pick(ctx)
	if err != nil {
		return Result{}, err
	}

	geom, err := targetGeometry(target)
	if err != nil {
		return Result{}, err
	}
	coll, ok := g.cfg.Collection(target.Item.Collection)
	if !ok {
		return Result{}, fmt.Errorf("%w: collection %q not configured", models.ErrConfiguration, target.Item.Collection)
	}

	params, err := g.renderer.Preset(ctx, coll.ID, coll.RenderingOption)
	if err != nil {
		return Result{}, err
	}
	q := query.Base(coll.ID, coll.Filters).
		WithGeometry(render.BackgroundPolygon(geom, g.cfg.Width, g.cfg.Height))

	g.logger.Info("rendering background",
		zap.String("collection", coll.ID),
		zap.String("item", target.Item.ID),
		zap.Bool("aoi", target.FromAOI()),
	)
	imageURL, err := g.renderer.RequestRender(ctx, render.Request{
		CQL:          q,
		RenderParams: params + "&collection=" + coll.ID,
		Cols:         g.cfg.Width,
		Rows:         g.cfg.Height,
	})
	if err != nil {
		return Result{}, err
	}
	img, err := g.renderer.Fetch(ctx, imageURL)
	if err != nil {
		return Result{}, err
	}

	bg := img
	if g.cfg.MirrorImage {
		bg = render.Mirror(img)
	}
	if err := render.SaveImage(g.cfg.ImagePath(), bg); err != nil {
		return Result{}, err
	}
	thumb := render.Thumbnail(img, g.cfg.ThumbnailWidth, g.cfg.ThumbnailHeight)
	if err := render.SaveImage(g.cfg.ThumbnailPath(), thumb); err != nil {
		return Result{}, err
	}

	if target.FromAOI() {
		if _, err := g.tracker.RecordUsage(ctx, target.AOIID, &target.Item); err != nil {
			return Result{}, err
		}
	}

	rec, err := g.writeRecord(ctx, target, q, params)
	if err != nil {
		return Result{}, err
	}
	g.appendHistory(ctx, target, params)

	g.logger.Info("background generated", zap.String("path", g.cfg.ImagePath()))
	return Result{
		Generated:     true,
		Reason:        reason,
		Record:        rec,
		ImagePath:     g.cfg.ImagePath(),
		ThumbnailPath: g.cfg.ThumbnailPath(),
		Capped:        capped,
	}, nil
}

func (g *Generator) pick(ctx context.Context) (selector.Candidate, []string, error) {
	opts := []selector.Option{
		selector.WithRand(g.rng),
		selector.WithClock(g.now),
		selector.WithLogger(g.logger),
	}
	if g.tracker != nil {
		opts = append(opts, selector.WithAOIs(g.tracker))
	}
	sel := selector.New(g.catalog, g.cfg.Collections, g.cfg.MaxSearchResults, opts...)

	selection, err := sel.Select(ctx)
	if err != nil {
		return selector.Candidate{}, nil, err
	}
	for _, id := range selection.Capped {
		g.logger.Warn("search hit max_search_results, pool may be incomplete",
			zap.String("collection", id),
			zap.Int("max_search_results", g.cfg.MaxSearchResults),
		)
	}
	target, err := sel.Choose(selection)
	if err != nil {
		return selector.Candidate{}, nil, err
	}
	return target, selection.Capped, nil
}

func targetGeometry(c selector.Candidate) (orb.Geometry, error) {
	if c.FromAOI() && c.AOIGeometry != nil {
		return c.AOIGeometry, nil
	}
	if !c.Item.HasGeometry() {
		return nil, fmt.Errorf("%w: item %s", models.ErrMissingGeometry, c.Item.ID)
	}
	return c.Item.Geometry.Geometry(), nil
}

func (g *Generator) writeRecord(ctx context.Context, target selector.Candidate, q query.Query, params string) (*models.GenerationRecord, error) {
	cql, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %w", models.ErrStorage, err)
	}
	changed := g.now().UTC()
	item := target.Item
	rec := &models.GenerationRecord{
		TargetItem:   &item,
		CQL:          cql,
		RenderParams: params,
		IsAOI:        target.FromAOI(),
		AOIID:        target.AOIID,
		Collection:   item.Collection,
		LastChanged:  &changed,
	}
	if err := g.records.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (g *Generator) appendHistory(ctx context.Context, target selector.Candidate, params string) {
	if g.history == nil {
		return
	}
	entry := &models.HistoryEntry{
		ItemID:       target.Item.ID,
		Collection:   target.Item.Collection,
		AOIID:        target.AOIID,
		IsAOI:        target.FromAOI(),
		RenderParams: params,
		ImagePath:    g.cfg.ImagePath(),
		CreatedAt:    g.now().UTC(),
	}
	if err := g.history.Record(ctx, entry); err != nil {
		g.logger.Warn("failed to append history", zap.Error(err))
	}
}
