package models

// CollectionSpec describes one catalog collection to draw backgrounds from.
type CollectionSpec struct {
	ID              string            `yaml:"id" json:"id"`
	RenderingOption string            `yaml:"rendering_option" json:"rendering_option,omitempty"`
	SearchDays      int               `yaml:"search_days" json:"search_days"`
	Filters         []FilterPredicate `yaml:"filters" json:"filters,omitempty"`
}

// FilterPredicate is an additional property comparison applied to every search
// of a collection.
type FilterPredicate struct {
	Property string      `yaml:"property" json:"property"`
	Op       string      `yaml:"op" json:"op"`
	Value    interface{} `yaml:"value" json:"value"`
}

// CQL returns the predicate as a cql2-json expression.
func (f FilterPredicate) CQL() map[string]interface{} {
	return map[string]interface{}{
		"op":   f.Op,
		"args": []interface{}{map[string]interface{}{"property": f.Property}, f.Value},
	}
}
