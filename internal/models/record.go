package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// GenerationRecord describes the most recently rendered background. It is
// written after the image has been stored and read at the start of the next run.
type GenerationRecord struct {
	TargetItem   *CatalogItem    `json:"target_item"`
	CQL          json.RawMessage `json:"cql"`
	RenderParams string          `json:"render_params"`
	IsAOI        bool            `json:"is_aoi"`
	AOIID        string          `json:"aoi_id,omitempty"`
	Collection   string          `json:"collection,omitempty"`
	LastChanged  *time.Time      `json:"last_changed"`
}

// MarshalJSON writes last_changed in the zone-less FormatTimestamp layout.
func (r GenerationRecord) MarshalJSON() ([]byte, error) {
	type alias GenerationRecord
	out := struct {
		alias
		LastChanged *string `json:"last_changed"`
	}{alias: alias(r)}
	if r.LastChanged != nil {
		s := FormatTimestamp(*r.LastChanged)
		out.LastChanged = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any layout ParseTimestamp understands for
// last_changed, including zone-less values.
func (r *GenerationRecord) UnmarshalJSON(data []byte) error {
	type alias GenerationRecord
	in := struct {
		*alias
		LastChanged *string `json:"last_changed"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.LastChanged = nil
	if in.LastChanged != nil && *in.LastChanged != "" {
		t, err := ParseTimestamp(*in.LastChanged)
		if err != nil {
			return fmt.Errorf("last_changed: %w", err)
		}
		r.LastChanged = &t
	}
	return nil
}

// HistoryEntry is one row of the generation history.
type HistoryEntry struct {
	ID           string    `json:"id"`
	ItemID       string    `json:"item_id"`
	Collection   string    `json:"collection"`
	AOIID        string    `json:"aoi_id,omitempty"`
	IsAOI        bool      `json:"is_aoi"`
	RenderParams string    `json:"render_params"`
	ImagePath    string    `json:"image_path"`
	CreatedAt    time.Time `json:"created_at"`
}
