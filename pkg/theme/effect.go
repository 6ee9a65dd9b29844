package theme

import (
	"log/slog"
	"sync"
)

// EffectOption configures an Effect.
type EffectOption func(*Effect)

// WithOverlayHook is called with the new overlay state each time it flips.
func WithOverlayHook(fn func(active bool)) EffectOption {
	return func(e *Effect) {
		e.onOverlay = fn
	}
}

// WithOverlayMode changes which mode activates the overlay.
func WithOverlayMode(mode Mode) EffectOption {
	return func(e *Effect) {
		if mode.Valid() {
			e.overlayMode = mode
		}
	}
}

// WithEffectLogger routes reconciliation logs to logger.
func WithEffectLogger(logger *slog.Logger) EffectOption {
	return func(e *Effect) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Effect keeps a Document's theme marker in line with a Store. It does not
// touch the document until Mount is called; from then on every mode change
// leaves exactly one theme marker on the document.
type Effect struct {
	store       *Store
	doc         Document
	overlayMode Mode
	onOverlay   func(active bool)
	logger      *slog.Logger

	mu          sync.Mutex
	mounted     bool
	closed      bool
	applied     Mode
	overlay     bool
	unsubscribe func()
}

// NewEffect attaches to store. The document is left untouched until Mount.
func NewEffect(store *Store, doc Document, opts ...EffectOption) *Effect {
	e := &Effect{
		store:       store,
		doc:         doc,
		overlayMode: OverlayMode,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.unsubscribe = store.Subscribe(func(_, _ Theme) {
		e.sync()
	})
	return e
}

// Mount signals that the document is interactive. Only the first call has an
// effect.
func (e *Effect) Mount() {
	e.mu.Lock()
	if e.mounted || e.closed {
		e.mu.Unlock()
		return
	}
	e.mounted = true
	e.mu.Unlock()
	e.sync()
}

// Mounted reports whether Mount has fired.
func (e *Effect) Mounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounted
}

// OverlayActive is true only after mount while the overlay mode is active.
func (e *Effect) OverlayActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlay
}

// Close detaches from the store. The document keeps its last marker.
func (e *Effect) Close() {
	e.mu.Lock()
	e.closed = true
	unsubscribe := e.unsubscribe
	e.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// sync reads the latest mode rather than the notified one so concurrent
// commits converge on the final state.
func (e *Effect) sync() {
	e.mu.Lock()
	if !e.mounted || e.closed {
		e.mu.Unlock()
		return
	}
	mode := e.store.Mode()
	if mode != e.applied {
		for _, other := range modes {
			if other != mode {
				e.doc.RemoveMarker(other.Marker())
			}
		}
		e.doc.AddMarker(mode.Marker())
		e.logger.Debug("theme marker applied", "mode", string(mode), "previous", string(e.applied))
		e.applied = mode
	}
	active := mode == e.overlayMode
	changed := active != e.overlay
	e.overlay = active
	hook := e.onOverlay
	e.mu.Unlock()

	if changed && hook != nil {
		hook(active)
	}
}
