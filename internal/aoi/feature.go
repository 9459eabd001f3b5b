// Package aoi tracks areas of interest and which catalog items have already
// been used for each of them.
package aoi

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/hyperjump/stacbg/internal/models"
)

// LastItemKey is the feature property holding the datetime of the last item
// rendered for an AOI.
const LastItemKey = "last_item_datetime"

// Feature is one area of interest. It is a value: updates return a copy.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Properties map[string]interface{}

	rawID interface{}
	bbox  geojson.BBox
}

// LastItemTime returns the stored last item datetime, if any.
func (f Feature) LastItemTime() (time.Time, bool, error) {
	raw, ok := f.Properties[LastItemKey]
	if !ok || raw == nil {
		return time.Time{}, false, nil
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return time.Time{}, false, nil
	}
	t, err := models.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("aoi %s: invalid %s %q: %w", f.ID, LastItemKey, s, err)
	}
	return t, true, nil
}

// Accepts reports whether an item dated dt is new for this AOI: strictly after
// the stored timestamp, or anything when none is stored.
func (f Feature) Accepts(dt time.Time) (bool, error) {
	last, ok, err := f.LastItemTime()
	if err != nil {
		return false, err
	}
	return !ok || dt.After(last), nil
}

// WithLastItemTime returns a copy of f with the last item datetime set to t.
func (f Feature) WithLastItemTime(t time.Time) Feature {
	props := make(map[string]interface{}, len(f.Properties)+1)
	for k, v := range f.Properties {
		props[k] = v
	}
	props[LastItemKey] = models.FormatTimestamp(t)
	f.Properties = props
	return f
}

// WithID returns a copy of f carrying id.
func (f Feature) WithID(id string) Feature {
	f.ID = id
	f.rawID = id
	return f
}

func featureFromGeoJSON(gf *geojson.Feature) Feature {
	f := Feature{
		Geometry:   gf.Geometry,
		Properties: map[string]interface{}(gf.Properties),
		rawID:      gf.ID,
		bbox:       gf.BBox,
	}
	if f.Properties == nil {
		f.Properties = map[string]interface{}{}
	}
	if gf.ID != nil {
		f.ID = fmt.Sprint(gf.ID)
	}
	return f
}

func (f Feature) toGeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.rawID
	if gf.ID == nil && f.ID != "" {
		gf.ID = f.ID
	}
	gf.BBox = f.bbox
	gf.Properties = geojson.Properties(f.Properties)
	return gf
}

// Collection is an ordered set of AOI features. Foreign members are kept at
// the collection level only; per feature, only properties and bbox survive.
type Collection struct {
	Features []Feature

	bbox  geojson.BBox
	extra geojson.Properties
}

// Find returns the feature with the given id.
func (c Collection) Find(id string) (Feature, bool) {
	for _, f := range c.Features {
		if f.ID == id {
			return f, true
		}
	}
	return Feature{}, false
}

// Replace returns a copy of c with the feature sharing f's id swapped for f.
func (c Collection) Replace(f Feature) Collection {
	features := make([]Feature, len(c.Features))
	for i, existing := range c.Features {
		if existing.ID == f.ID {
			features[i] = f
		} else {
			features[i] = existing
		}
	}
	c.Features = features
	return c
}

// WithIdentifiers returns a copy of c where every feature lacking an id has
// been given one from newID. The bool reports whether anything was assigned.
func (c Collection) WithIdentifiers(newID func() string) (Collection, bool) {
	features := make([]Feature, len(c.Features))
	changed := false
	for i, f := range c.Features {
		if f.ID == "" {
			f = f.WithID(newID())
			changed = true
		}
		features[i] = f
	}
	c.Features = features
	return c, changed
}

func collectionFromGeoJSON(fc *geojson.FeatureCollection) Collection {
	c := Collection{bbox: fc.BBox, extra: fc.ExtraMembers}
	c.Features = make([]Feature, 0, len(fc.Features))
	for _, gf := range fc.Features {
		c.Features = append(c.Features, featureFromGeoJSON(gf))
	}
	return c
}

func (c Collection) toGeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.BBox = c.bbox
	fc.ExtraMembers = c.extra
	for _, f := range c.Features {
		fc.Append(f.toGeoJSON())
	}
	return fc
}
