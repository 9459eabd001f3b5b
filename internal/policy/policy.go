// Package policy decides whether the background image must be regenerated.
package policy

import (
	"math"
	"time"

	"github.com/hyperjump/stacbg/internal/models"
)

// AccessTolerance is how long after creation a read still counts as part of
// writing the file. A later access means someone looked at the background.
const AccessTolerance = 2 * time.Second

// Input is everything the decision depends on.
type Input struct {
	ImageExists bool
	Image       Timestamps

	// Record is the previous generation record; nil when none exists.
	Record *models.GenerationRecord

	AOIsConfigured bool
	RefreshDays    int

	// ForceRegenAfter is the maximum image age; zero disables the check.
	ForceRegenAfter time.Duration

	Now time.Time
}

// Decision is the outcome of Decide with a human-readable reason.
type Decision struct {
	Regenerate bool   `json:"regenerate"`
	Reason     string `json:"reason"`
}

// Decide applies the regeneration rules in order. It has no side effects.
func Decide(in Input) Decision {
	if !in.ImageExists {
		return Decision{true, "image does not exist"}
	}

	if in.Record != nil && in.Record.IsAOI && in.AOIsConfigured && in.Record.LastChanged != nil {
		if daysBetween(*in.Record.LastChanged, in.Now) < in.RefreshDays {
			return Decision{false, "aoi image is recent"}
		}
	}

	if in.Image.Accessed.Sub(in.Image.Created) > AccessTolerance {
		return Decision{true, "image has been read since it was created"}
	}

	if in.ForceRegenAfter > 0 {
		deadline := in.Image.Created.Add(in.ForceRegenAfter)
		if in.Now.After(deadline) {
			return Decision{true, "image has not been regenerated in a while"}
		}
	}

	return Decision{false, "image has not been read since it was created"}
}

// daysBetween returns the whole days elapsed from a to b, floored.
func daysBetween(a, b time.Time) int {
	return int(math.Floor(b.Sub(a).Hours() / 24))
}
