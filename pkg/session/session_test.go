package session_test

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	store "github.com/goliatone/go-wedding-state"
	"github.com/goliatone/go-wedding-state/pkg/activity"
	"github.com/goliatone/go-wedding-state/pkg/medium"
	"github.com/goliatone/go-wedding-state/pkg/session"
)

var ada = session.Identity{ID: "3f1c0d2e-8a4b-4c6d-9e0f-123456789abc", Email: "ada@example.com", Name: "Ada"}

func assertInvariant(t *testing.T, s session.Session) {
	t.Helper()
	if s.IsAuthenticated != (s.Identity != nil) {
		t.Fatalf("invariant broken: %+v", s)
	}
}

func TestLoginIsOneAtomicObservation(t *testing.T) {
	s, err := session.New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.SetLoading(true)
	s.SetError("previous failure")

	var observed []session.Session
	s.Subscribe(func(state, _ session.Session) {
		assertInvariant(t, state)
		observed = append(observed, state)
	})

	s.Login(ada)

	if len(observed) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(observed))
	}
	got := s.Get()
	if got.Identity == nil || *got.Identity != ada || !got.IsAuthenticated || got.IsLoading || got.LastError != "" {
		t.Fatalf("unexpected session after login: %+v", got)
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	s, _ := session.New()
	s.Login(ada)
	s.SetLoading(true)
	s.SetError("boom")

	s.Logout()

	got := s.Get()
	if got.Identity != nil || got.IsAuthenticated || got.IsLoading || got.LastError != "" {
		t.Fatalf("expected cleared session, got %+v", got)
	}
}

func TestSetIdentityKeepsInvariant(t *testing.T) {
	s, _ := session.New()
	s.Subscribe(func(state, _ session.Session) { assertInvariant(t, state) })

	s.SetLoading(true)
	s.SetIdentity(&ada)
	got := s.Get()
	if !got.IsAuthenticated || !got.IsLoading {
		t.Fatalf("expected authenticated with loading untouched, got %+v", got)
	}

	s.SetIdentity(nil)
	got = s.Get()
	if got.IsAuthenticated || got.Identity != nil {
		t.Fatalf("expected signed out, got %+v", got)
	}
}

func TestSetIdentityCopiesInput(t *testing.T) {
	s, _ := session.New()
	identity := ada
	s.SetIdentity(&identity)
	identity.Name = "changed"
	if s.Get().Identity.Name != "Ada" {
		t.Fatalf("store aliased caller identity")
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	s, _ := session.New()
	s.Login(ada)
	s.SetLoading(true)
	s.Reset()
	got := s.Get()
	if got != (session.Session{}) {
		t.Fatalf("expected zero session, got %+v", got)
	}
}

func TestPersistsOnlyIdentityAndAuthFlag(t *testing.T) {
	m := medium.NewMemory()
	s, err := session.New(store.WithMedium[session.Session](m, session.Key))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Login(ada)
	s.SetLoading(true)
	s.SetError("transient")
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, ok, _ := m.Get(context.Background(), session.Key)
	if !ok {
		t.Fatalf("expected persisted session")
	}
	if strings.Contains(raw, "transient") || strings.Contains(strings.ToLower(raw), "loading") {
		t.Fatalf("ephemeral fields persisted: %s", raw)
	}

	reloaded, err := session.New(store.WithMedium[session.Session](m, session.Key))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer reloaded.Close(context.Background())
	got := reloaded.Get()
	if got.Identity == nil || got.Identity.Email != ada.Email || !got.IsAuthenticated {
		t.Fatalf("expected identity restored, got %+v", got)
	}
	if got.IsLoading || got.LastError != "" {
		t.Fatalf("expected ephemeral fields reset, got %+v", got)
	}
}

func TestInconsistentPersistedSessionIsDiscarded(t *testing.T) {
	m := medium.NewMemory()
	m.Seed(session.Key, `{"state":{"identity":null,"isAuthenticated":true},"version":0}`)

	s, err := session.New(store.WithMedium[session.Session](m, session.Key))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close(context.Background())

	if got := s.Get(); got.IsAuthenticated {
		t.Fatalf("expected fallback to signed-out session, got %+v", got)
	}
}

func TestLoginAndLogoutEmitActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	s, _ := session.New(store.WithActivity[session.Session](emitter, "session"))

	s.Login(ada)
	s.Logout()

	verbs := capture.Verbs()
	if len(verbs) != 2 || verbs[0] != "session.login" || verbs[1] != "session.logout" {
		t.Fatalf("unexpected verbs %v", verbs)
	}
	for _, event := range capture.Events {
		if event.UserID != ada.ID {
			t.Fatalf("expected events attributed to %s, got %q", ada.ID, event.UserID)
		}
		if event.OccurredAt.After(time.Now()) {
			t.Fatalf("unexpected timestamp %v", event.OccurredAt)
		}
	}
}

func TestStoreMethodsAreDomainOperations(t *testing.T) {
	allowed := []string{
		"ClearStorage", "Close", "Flush", "Get", "HasHydrated", "Key",
		"Login", "Logout", "Rehydrate", "Reset", "SetError", "SetIdentity",
		"SetLoading", "Subscribe",
	}
	typ := reflect.TypeOf(&session.Store{})
	for i := 0; i < typ.NumMethod(); i++ {
		name := typ.Method(i).Name
		if !slices.Contains(allowed, name) {
			t.Fatalf("unexpected exported method %s on session.Store", name)
		}
	}
}

func TestRehydrateRejectsInconsistentSession(t *testing.T) {
	ctx := context.Background()
	m := medium.NewMemory()
	s, err := session.New(store.WithMedium[session.Session](m, session.Key))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close(ctx)
	if s.Key() != session.Key || !s.HasHydrated() {
		t.Fatalf("expected hydrated store on %q, got key %q", session.Key, s.Key())
	}

	s.Login(ada)
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	m.Seed(session.Key, `{"state":{"identity":null,"isAuthenticated":true},"version":0}`)

	if err := s.Rehydrate(ctx); err == nil {
		t.Fatalf("expected inconsistent payload to be rejected")
	}
	got := s.Get()
	assertInvariant(t, got)
	if got.Identity == nil || got.Identity.ID != ada.ID {
		t.Fatalf("expected current session kept, got %+v", got)
	}

	if err := s.ClearStorage(ctx); err != nil {
		t.Fatalf("clear storage: %v", err)
	}
	if _, found, _ := m.Get(ctx, session.Key); found {
		t.Fatalf("expected persisted session deleted")
	}
	if err := s.Rehydrate(ctx); err != nil {
		t.Fatalf("rehydrate empty slot: %v", err)
	}
	if !s.Get().IsAuthenticated {
		t.Fatalf("expected memory untouched by ClearStorage")
	}
}

func TestMemoryOnlySessionHasNoStorage(t *testing.T) {
	s, _ := session.New()
	if s.Key() != "" {
		t.Fatalf("expected empty key, got %q", s.Key())
	}
	if err := s.Rehydrate(context.Background()); !errors.Is(err, store.ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}
}
