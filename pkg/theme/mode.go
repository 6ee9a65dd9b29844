package theme

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownMode is returned for identifiers outside the mode enumeration.
var ErrUnknownMode = errors.New("theme: unknown mode")

// Mode identifies a visual theme.
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
)

// DefaultMode is used on first run.
const DefaultMode = ModeLight

// OverlayMode is the mode that activates the decorative overlay.
const OverlayMode = ModeDark

var modes = []Mode{ModeLight, ModeDark}

// Modes returns the enumeration in toggle order.
func Modes() []Mode {
	return slices.Clone(modes)
}

// Valid reports whether m belongs to the enumeration.
func (m Mode) Valid() bool {
	return slices.Contains(modes, m)
}

// Next returns the mode after m in toggle order, wrapping at the end. Unknown
// modes advance to the first member.
func (m Mode) Next() Mode {
	idx := slices.Index(modes, m)
	return modes[(idx+1)%len(modes)]
}

// Marker is the document marker (class name) for m.
func (m Mode) Marker() string {
	return string(m)
}

// ParseMode maps text to a mode, ignoring case and surrounding space.
func ParseMode(text string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(text)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, text)
	}
	return m, nil
}
