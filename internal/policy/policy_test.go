package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/stacbg/internal/models"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func TestDecide(t *testing.T) {
	created := now.Add(-48 * time.Hour)
	unread := Timestamps{Created: created, Accessed: created.Add(time.Second)}
	read := Timestamps{Created: created, Accessed: created.Add(time.Hour)}
	freshAOI := &models.GenerationRecord{IsAOI: true, LastChanged: ago(2 * time.Hour)}
	staleAOI := &models.GenerationRecord{IsAOI: true, LastChanged: ago(3 * 24 * time.Hour)}
	randomRec := &models.GenerationRecord{IsAOI: false, LastChanged: ago(2 * time.Hour)}

	tests := []struct {
		name string
		in   Input
		want bool
	}{
		{"missing image", Input{ImageExists: false, Record: freshAOI, AOIsConfigured: true, RefreshDays: 100, Now: now}, true},
		{"missing image ignores everything", Input{ImageExists: false, Image: unread, Now: now}, true},
		{"fresh aoi suppresses read image", Input{ImageExists: true, Image: read, Record: freshAOI, AOIsConfigured: true, RefreshDays: 1, Now: now}, false},
		{"fresh aoi suppresses max age", Input{ImageExists: true, Image: unread, Record: freshAOI, AOIsConfigured: true, RefreshDays: 1, ForceRegenAfter: time.Hour, Now: now}, false},
		{"aoi record without aois configured", Input{ImageExists: true, Image: read, Record: freshAOI, AOIsConfigured: false, RefreshDays: 1, Now: now}, true},
		{"stale aoi falls through to access check", Input{ImageExists: true, Image: read, Record: staleAOI, AOIsConfigured: true, RefreshDays: 1, Now: now}, true},
		{"non-aoi record falls through", Input{ImageExists: true, Image: read, Record: randomRec, AOIsConfigured: true, RefreshDays: 1, Now: now}, true},
		{"read after creation", Input{ImageExists: true, Image: read, Now: now}, true},
		{"access within tolerance", Input{ImageExists: true, Image: Timestamps{Created: created, Accessed: created.Add(AccessTolerance)}, Now: now}, false},
		{"unread no max age", Input{ImageExists: true, Image: unread, Now: now}, false},
		{"unread past max age", Input{ImageExists: true, Image: unread, ForceRegenAfter: 24 * time.Hour, Now: now}, true},
		{"unread before max age", Input{ImageExists: true, Image: unread, ForceRegenAfter: 72 * time.Hour, Now: now}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.in)
			if got.Regenerate != tt.want {
				t.Errorf("Decide() = %+v, want regenerate=%v", got, tt.want)
			}
			if got.Reason == "" {
				t.Error("reason should be set")
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{23 * time.Hour, 0},
		{24 * time.Hour, 1},
		{47 * time.Hour, 1},
		{-time.Hour, -1},
	}
	for _, tt := range tests {
		if got := daysBetween(now.Add(-tt.d), now); got != tt.want {
			t.Errorf("daysBetween(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestStat(t *testing.T) {
	dir := t.TempDir()
	_, exists, err := Stat(filepath.Join(dir, "missing.png"))
	if err != nil || exists {
		t.Errorf("missing file: exists=%v err=%v", exists, err)
	}

	path := filepath.Join(dir, "bg.png")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	ts, exists, err := Stat(path)
	if err != nil || !exists {
		t.Fatalf("existing file: exists=%v err=%v", exists, err)
	}
	if ts.Created.IsZero() || ts.Accessed.IsZero() {
		t.Errorf("timestamps not populated: %+v", ts)
	}
}
