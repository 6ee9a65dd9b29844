package countdown

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTarget is returned when a target text matches no known layout.
var ErrInvalidTarget = errors.New("countdown: invalid target")

// layouts without a zone are read in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTarget reads an RFC 3339 instant or a zone-less date/time in the local
// zone.
func ParseTarget(text string) (time.Time, error) {
	return ParseTargetIn(text, time.Local)
}

// ParseTargetIn is ParseTarget with zone-less values read in loc.
func ParseTargetIn(text string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(text)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTarget)
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTarget, text)
}
