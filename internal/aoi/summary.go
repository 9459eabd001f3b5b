package aoi

// Summary is the listing view of a Feature.
type Summary struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	GeometryType     string `json:"geometry_type"`
	LastItemDatetime string `json:"last_item_datetime,omitempty"`
}

// Summarize lists every AOI in c.
func Summarize(c Collection) []Summary {
	out := make([]Summary, 0, len(c.Features))
	for _, f := range c.Features {
		s := Summary{ID: f.ID}
		if name, ok := f.Properties["name"].(string); ok {
			s.Name = name
		}
		if f.Geometry != nil {
			s.GeometryType = f.Geometry.GeoJSONType()
		}
		if last, ok := f.Properties[LastItemKey].(string); ok {
			s.LastItemDatetime = last
		}
		out = append(out, s)
	}
	return out
}
