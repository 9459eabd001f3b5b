// Package models defines core data structures for catalog items, collections, and generation records.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

// CatalogItem is a STAC item returned by a catalog search.
type CatalogItem struct {
	Type           string                 `json:"type,omitempty"`
	StacVersion    string                 `json:"stac_version,omitempty"`
	StacExtensions []string               `json:"stac_extensions,omitempty"`
	ID             string                 `json:"id"`
	Collection     string                 `json:"collection,omitempty"`
	Geometry       *geojson.Geometry      `json:"geometry"`
	BBox           []float64              `json:"bbox,omitempty"`
	Properties     map[string]interface{} `json:"properties"`
	Assets         map[string]interface{} `json:"assets,omitempty"`
	Links          []Link                 `json:"links,omitempty"`
}

// Link is a STAC link object.
type Link struct {
	Rel    string                 `json:"rel"`
	Href   string                 `json:"href"`
	Type   string                 `json:"type,omitempty"`
	Method string                 `json:"method,omitempty"`
	Body   map[string]interface{} `json:"body,omitempty"`
	Merge  bool                   `json:"merge,omitempty"`
}

// Datetime returns the item's effective datetime: properties.datetime, or
// properties.start_datetime when datetime is null (range items).
func (i *CatalogItem) Datetime() (time.Time, error) {
	for _, key := range []string{"datetime", "start_datetime"} {
		raw, ok := i.Properties[key].(string)
		if !ok || raw == "" {
			continue
		}
		t, err := ParseTimestamp(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("item %s: invalid %s %q: %w", i.ID, key, raw, err)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("item %s has no datetime", i.ID)
}

// HasGeometry reports whether the item carries a usable geometry.
func (i *CatalogItem) HasGeometry() bool {
	return i.Geometry != nil && i.Geometry.Geometry() != nil
}

// timestampLayouts are tried in order by ParseTimestamp. Layouts without a zone
// are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp as written by STAC APIs or by
// FormatTimestamp. The result is always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// FormatTimestamp renders t in UTC without a zone suffix, e.g. 2024-01-01T00:00:00.
// Fractional seconds are kept to the nanosecond, and only when non-zero, so
// ParseTimestamp(FormatTimestamp(t)) equals t.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999999")
}
