// Package cli formats command output as text or JSON.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hyperjump/stacbg/internal/aoi"
	"github.com/hyperjump/stacbg/internal/models"
	"github.com/hyperjump/stacbg/internal/policy"
	"github.com/hyperjump/stacbg/internal/storage"
	"github.com/hyperjump/stacbg/pkg/utils"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("invalid output format %q: use text or json", s)
}

// Status is what the status command reports.
type Status struct {
	Decision     policy.Decision          `json:"decision"`
	Record       *models.GenerationRecord `json:"record,omitempty"`
	Artifacts    []storage.Artifact       `json:"artifacts"`
	TotalBytes   int64                    `json:"total_bytes"`
	HistoryCount int64                    `json:"history_count"`
}

// WriteStatus writes s to w in the given format.
func WriteStatus(w io.Writer, s *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	verdict := "no"
	if s.Decision.Regenerate {
		verdict = "yes"
	}
	fmt.Fprintf(w, "Regenerate: %s (%s)\n", verdict, s.Decision.Reason)
	if s.Record == nil {
		fmt.Fprintln(w, "Current background: none")
	} else {
		writeRecordText(w, s.Record)
	}
	fmt.Fprintln(w, "Files:")
	for _, a := range s.Artifacts {
		size := "missing"
		if a.Exists {
			size = utils.HumanBytes(a.Bytes)
		}
		fmt.Fprintf(w, "  %s (%s)\n", a.Path, size)
	}
	fmt.Fprintf(w, "Total size: %s\n", utils.HumanBytes(s.TotalBytes))
	fmt.Fprintf(w, "Generations recorded: %d\n", s.HistoryCount)
	return nil
}

func writeRecordText(w io.Writer, rec *models.GenerationRecord) {
	itemID := ""
	if rec.TargetItem != nil {
		itemID = rec.TargetItem.ID
	}
	fmt.Fprintf(w, "Current background: %s", itemID)
	if rec.Collection != "" {
		fmt.Fprintf(w, " (%s)", rec.Collection)
	}
	fmt.Fprintln(w)
	if rec.IsAOI {
		fmt.Fprintf(w, "  AOI: %s\n", rec.AOIID)
	}
	if rec.LastChanged != nil {
		fmt.Fprintf(w, "  Last changed: %s\n", models.FormatTimestamp(*rec.LastChanged))
	}
	fmt.Fprintf(w, "  Render params: %s\n", utils.Truncate(rec.RenderParams, 80))
}

// WriteHistory writes history entries to w in the given format.
func WriteHistory(w io.Writer, entries []*models.HistoryEntry, format OutputFormat) error {
	if format == OutputJSON {
		if entries == nil {
			entries = []*models.HistoryEntry{}
		}
		return writeJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No generations recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tCOLLECTION\tITEM\tAOI")
	for _, e := range entries {
		aoiID := "-"
		if e.IsAOI {
			aoiID = e.AOIID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", models.FormatTimestamp(e.CreatedAt), e.Collection, utils.Truncate(e.ItemID, 48), aoiID)
	}
	return tw.Flush()
}

// WriteAOIs writes AOI summaries to w in the given format.
func WriteAOIs(w io.Writer, aois []aoi.Summary, format OutputFormat) error {
	if format == OutputJSON {
		if aois == nil {
			aois = []aoi.Summary{}
		}
		return writeJSON(w, aois)
	}
	if len(aois) == 0 {
		fmt.Fprintln(w, "No areas of interest.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tGEOMETRY\tLAST ITEM")
	for _, a := range aois {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", orDash(a.ID), orDash(a.Name), orDash(a.GeometryType), orDash(a.LastItemDatetime))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
