package config

import (
	"testing"
	"time"
)

func TestParseAge(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"3 days", 3 * day, false},
		{"1 week", 7 * day, false},
		{"12 hours", 12 * time.Hour, false},
		{"an hour", time.Hour, false},
		{"two days", 2 * day, false},
		{"1 day ago", day, false},
		{"1 month", 29 * day, false},
		{"1 year", 366 * day, false},
		{"36h", 36 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"3d", 3 * day, false},
		{"1w2d", 9 * day, false},
		{"P3D", 3 * day, false},
		{"PT12H", 12 * time.Hour, false},
		{"p2d", 2 * day, false},
		{"", 0, true},
		{"soon", 0, true},
		{"0 days", 0, true},
		{"-1h", 0, true},
		{"Pxyz", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAge(tt.in, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAge(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseAge(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
