// Package countdown projects the time remaining until a target instant.
package countdown

import (
	"math"
	"time"
)

// Snapshot is the remaining time split into calendar-free units. Days are
// fixed 24-hour spans; daylight saving shifts are not applied.
type Snapshot struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
	Expired bool  `json:"isExpired"`
	// Invalid marks a target that could not be parsed. Invalid snapshots are
	// also Expired.
	Invalid bool `json:"isInvalid,omitempty"`
}

// Terminal reports whether no further snapshot can differ from this one.
func (s Snapshot) Terminal() bool {
	return s.Expired || s.Invalid
}

// maxDays is the largest day count a time.Duration can hold.
const maxDays = int64(math.MaxInt64 / int64(24*time.Hour))

// Remaining returns the snapshot as a duration. Snapshots beyond the range
// of time.Duration, roughly 292 years, return math.MaxInt64.
func (s Snapshot) Remaining() time.Duration {
	if s.Days >= maxDays {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(s.Days)*24*time.Hour +
		time.Duration(s.Hours)*time.Hour +
		time.Duration(s.Minutes)*time.Minute +
		time.Duration(s.Seconds)*time.Second
}

func invalidSnapshot() Snapshot {
	return Snapshot{Expired: true, Invalid: true}
}

// Compute decomposes target-now. Partial seconds are dropped. A target that
// is not after now yields the zero, expired snapshot. The difference is taken
// in Unix seconds, so targets centuries away are not capped by time.Duration.
func Compute(target, now time.Time) Snapshot {
	total := target.Unix() - now.Unix()
	nanos := target.Nanosecond() - now.Nanosecond()
	if nanos < 0 {
		total--
		nanos += int(time.Second)
	}
	if total < 0 || (total == 0 && nanos == 0) {
		return Snapshot{Expired: true}
	}
	return Snapshot{
		Days:    total / 86400,
		Hours:   (total / 3600) % 24,
		Minutes: (total / 60) % 60,
		Seconds: total % 60,
	}
}
