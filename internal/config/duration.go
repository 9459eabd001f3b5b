package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
	"github.com/sosodev/duration"
	"github.com/xhit/go-str2duration/v2"
)

// ParseAge parses how long an image may live before it is regenerated,
// measured back from now so calendar units ("1 month") follow the calendar.
// It accepts ISO-8601 durations ("P3D"), compact durations ("36h", "3d",
// "1w2d") and natural language ("3 days", "two weeks", "an hour ago").
// The result must be positive.
func ParseAge(s string, now time.Time) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}

	var (
		d   time.Duration
		err error
	)
	switch {
	case strings.HasPrefix(strings.ToUpper(s), "P"):
		var iso *duration.Duration
		iso, err = duration.Parse(strings.ToUpper(s))
		if err == nil {
			d = iso.ToTimeDuration()
		}
	default:
		d, err = str2duration.ParseDuration(s)
		if err != nil {
			d, err = parsePhrase(s, now)
		}
	}
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid duration %q: must be positive", s)
	}
	return d, nil
}

// parsePhrase reads s as "<s> ago" relative to now and returns the distance.
func parsePhrase(s string, now time.Time) (time.Duration, error) {
	now = now.UTC()
	phrase := strings.TrimSpace(strings.TrimSuffix(strings.ToLower(s), "ago")) + " ago"
	dt, err := dps.Parse(&dps.Configuration{CurrentTime: now}, phrase)
	if err != nil {
		return 0, err
	}
	if dt.Time.IsZero() {
		return 0, errors.New("no date phrase found")
	}
	return now.Sub(dt.Time), nil
}
