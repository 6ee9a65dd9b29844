package theme

import (
	"slices"
	"sync"
)

// Document is the rendered surface the effect reconciles. Implementations
// apply markers to whatever carries the theme (a root element class list,
// a template context, a response header).
type Document interface {
	AddMarker(marker string)
	RemoveMarker(marker string)
}

// MarkerSet is an in-memory Document. The zero value is ready to use.
type MarkerSet struct {
	mu      sync.Mutex
	markers []string
	writes  int
}

func (d *MarkerSet) AddMarker(marker string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++
	if !slices.Contains(d.markers, marker) {
		d.markers = append(d.markers, marker)
	}
}

func (d *MarkerSet) RemoveMarker(marker string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++
	d.markers = slices.DeleteFunc(d.markers, func(m string) bool { return m == marker })
}

// Markers returns the markers currently present, in insertion order.
func (d *MarkerSet) Markers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.markers)
}

// Has reports whether marker is present.
func (d *MarkerSet) Has(marker string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Contains(d.markers, marker)
}

// Writes counts AddMarker and RemoveMarker calls.
func (d *MarkerSet) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}
