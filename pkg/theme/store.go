package theme

import (
	"context"
	"fmt"

	store "github.com/goliatone/go-wedding-state"
)

// Key is the persistence slot of the theme store.
const Key = "wedding-theme"

// Theme is persisted in full.
type Theme struct {
	Mode Mode `json:"mode"`
}

// Validate rejects persisted themes whose mode left the enumeration.
func (t Theme) Validate() error {
	if !t.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, t.Mode)
	}
	return nil
}

// Store holds the active theme.
type Store struct {
	inner *store.Store[Theme]
}

// New builds a theme store starting at DefaultMode.
func New(opts ...store.Option[Theme]) (*Store, error) {
	return NewWithDefault(DefaultMode, opts...)
}

// NewWithDefault builds a theme store whose first-run mode is def.
func NewWithDefault(def Mode, opts ...store.Option[Theme]) (*Store, error) {
	if !def.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, def)
	}
	defaults := []store.Option[Theme]{store.WithName[Theme]("theme")}
	inner, err := store.New(Theme{Mode: def}, append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner}, nil
}

func (s *Store) Get() Theme {
	return s.inner.Get()
}

// Mode returns the active mode.
func (s *Store) Mode() Mode {
	return s.inner.Get().Mode
}

// Subscribe registers listener for theme changes.
func (s *Store) Subscribe(listener store.Listener[Theme]) func() {
	return s.inner.Subscribe(listener)
}

// SetMode switches to mode. Modes outside the enumeration are rejected and
// the state is left unchanged.
func (s *Store) SetMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	s.inner.Apply("set_mode", func(state *Theme) {
		state.Mode = mode
	})
	return nil
}

// Toggle advances to the next mode in the enumeration.
func (s *Store) Toggle() {
	s.inner.Apply("toggle", func(state *Theme) {
		state.Mode = state.Mode.Next()
	})
}

// Reset restores the first-run mode.
func (s *Store) Reset() {
	s.inner.Reset()
}

func (s *Store) Key() string { return s.inner.Key() }

func (s *Store) HasHydrated() bool { return s.inner.HasHydrated() }

// Flush waits for the pending mode write.
func (s *Store) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}

// Rehydrate reloads the persisted mode, ignoring unknown modes.
func (s *Store) Rehydrate(ctx context.Context) error {
	return s.inner.Rehydrate(ctx)
}

func (s *Store) ClearStorage(ctx context.Context) error {
	return s.inner.ClearStorage(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}
