// Package query builds cql2-json filter expressions for STAC searches.
//
// Query values are immutable: every With* method returns a new Query and
// leaves the receiver untouched, so one base query can be shared across all
// AOIs and items of a collection.
package query

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/hyperjump/stacbg/internal/models"
)

// FilterLang is the filter language of every query built here.
const FilterLang = "cql2-json"

// Expr is a cql2-json operation.
type Expr struct {
	Op   string        `json:"op"`
	Args []interface{} `json:"args"`
}

// Query is a top-level conjunction of clauses.
type Query struct {
	clauses []interface{}
}

// Base returns the conjunction of collection equality and the given predicates.
func Base(collectionID string, predicates []models.FilterPredicate) Query {
	clauses := make([]interface{}, 0, 1+len(predicates))
	clauses = append(clauses, Expr{
		Op:   "=",
		Args: []interface{}{property("collection"), collectionID},
	})
	for _, p := range predicates {
		clauses = append(clauses, p.CQL())
	}
	return Query{clauses: clauses}
}

// WithGeometry returns a copy of q restricted to items intersecting geom.
func (q Query) WithGeometry(geom orb.Geometry) Query {
	return q.with(Expr{
		Op:   "s_intersects",
		Args: []interface{}{property("geometry"), geojson.NewGeometry(geom)},
	})
}

// WithDatetimeAfter returns a copy of q restricted to items whose datetime
// falls in [start, end].
func (q Query) WithDatetimeAfter(start, end time.Time) Query {
	interval := map[string]interface{}{
		"interval": []string{isoformat(start), isoformat(end)},
	}
	return q.with(Expr{
		Op:   "anyinteracts",
		Args: []interface{}{property("datetime"), interval},
	})
}

// Len returns the number of clauses in the conjunction.
func (q Query) Len() int {
	return len(q.clauses)
}

// Filter returns the top-level "and" expression.
func (q Query) Filter() Expr {
	args := make([]interface{}, len(q.clauses))
	copy(args, q.clauses)
	return Expr{Op: "and", Args: args}
}

// MarshalJSON renders {"filter-lang": ..., "filter": ...}.
func (q Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FilterLang string `json:"filter-lang"`
		Filter     Expr   `json:"filter"`
	}{FilterLang, q.Filter()})
}

// SearchBody returns the POST body for a STAC /search request.
func (q Query) SearchBody(limit int) map[string]interface{} {
	body := map[string]interface{}{
		"filter-lang": FilterLang,
		"filter":      q.Filter(),
	}
	if limit > 0 {
		body["limit"] = limit
	}
	return body
}

func (q Query) with(clause interface{}) Query {
	clauses := make([]interface{}, len(q.clauses), len(q.clauses)+1)
	copy(clauses, q.clauses)
	return Query{clauses: append(clauses, clause)}
}

func property(name string) map[string]string {
	return map[string]string{"property": name}
}

func isoformat(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
