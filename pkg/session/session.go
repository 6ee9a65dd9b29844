// Package session holds the authenticated identity of the current visitor.
//
// Only the identity and the authenticated flag survive a reload; loading and
// error flags are ephemeral and start cleared on every process start.
package session

import (
	"context"
	"errors"

	store "github.com/goliatone/go-wedding-state"
)

// Key is the persistence slot of the session store.
const Key = "auth-storage"

// Identity is supplied by the identity provider. The session never validates
// or fetches identities itself.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Session is the observable auth state. IsAuthenticated is true exactly when
// Identity is set.
type Session struct {
	Identity        *Identity `json:"identity"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	IsLoading       bool      `json:"-"`
	LastError       string    `json:"-"`
}

// Validate reports a session whose flags disagree with its identity. Persisted
// sessions failing validation are discarded on rehydration.
func (s Session) Validate() error {
	if s.IsAuthenticated != (s.Identity != nil) {
		return errors.New("session: authenticated flag disagrees with identity")
	}
	return nil
}

type persisted struct {
	Identity        *Identity `json:"identity"`
	IsAuthenticated bool      `json:"isAuthenticated"`
}

func project(s Session) any {
	return persisted{Identity: s.Identity, IsAuthenticated: s.IsAuthenticated}
}

// Store wraps the generic engine with the session operations.
type Store struct {
	inner *store.Store[Session]
}

// New builds the session store. Options are appended after the session
// defaults so callers can attach a medium, logger or activity emitter.
func New(opts ...store.Option[Session]) (*Store, error) {
	defaults := []store.Option[Session]{
		store.WithName[Session]("session"),
		store.WithProjection[Session](project),
		store.WithActor[Session](actor),
	}
	inner, err := store.New(Session{}, append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner}, nil
}

func actor(prev, next Session) string {
	if next.Identity != nil {
		return next.Identity.ID
	}
	if prev.Identity != nil {
		return prev.Identity.ID
	}
	return ""
}

// Get returns the current session.
func (s *Store) Get() Session {
	return s.inner.Get()
}

// Subscribe registers listener for session changes.
func (s *Store) Subscribe(listener store.Listener[Session]) func() {
	return s.inner.Subscribe(listener)
}

// SetIdentity replaces the identity; nil signs the visitor out without
// touching the loading or error flags.
func (s *Store) SetIdentity(identity *Identity) {
	s.inner.Apply("set_identity", func(state *Session) {
		state.Identity = cloneIdentity(identity)
		state.IsAuthenticated = identity != nil
	})
}

func (s *Store) SetLoading(loading bool) {
	s.inner.Apply("set_loading", func(state *Session) {
		state.IsLoading = loading
	})
}

// SetError records message; an empty message clears the error.
func (s *Store) SetError(message string) {
	s.inner.Apply("set_error", func(state *Session) {
		state.LastError = message
	})
}

// Login marks identity as authenticated and clears loading and error.
func (s *Store) Login(identity Identity) {
	s.inner.Apply("login", func(state *Session) {
		state.Identity = cloneIdentity(&identity)
		state.IsAuthenticated = true
		state.IsLoading = false
		state.LastError = ""
	})
}

// Logout clears the identity and every flag.
func (s *Store) Logout() {
	s.inner.Apply("logout", func(state *Session) {
		*state = Session{}
	})
}

// Reset restores the initial session, ephemeral fields included.
func (s *Store) Reset() {
	s.inner.Reset()
}

// Key returns the persistence key, empty for a memory-only session.
func (s *Store) Key() string {
	return s.inner.Key()
}

// HasHydrated reports whether the persisted session has been loaded.
func (s *Store) HasHydrated() bool {
	return s.inner.HasHydrated()
}

// Flush blocks until the latest committed session is written.
func (s *Store) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}

// Rehydrate reloads the persisted session. A persisted value that fails
// Validate is rejected with an error and the current session is kept.
func (s *Store) Rehydrate(ctx context.Context) error {
	return s.inner.Rehydrate(ctx)
}

// ClearStorage deletes the persisted session without touching memory.
func (s *Store) ClearStorage(ctx context.Context) error {
	return s.inner.ClearStorage(ctx)
}

// Close flushes and stops persistence.
func (s *Store) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}

func cloneIdentity(identity *Identity) *Identity {
	if identity == nil {
		return nil
	}
	out := *identity
	return &out
}
