package activity

import (
	"context"
	"testing"
)

func TestBuildStoreEventComposesVerbAndMetadata(t *testing.T) {
	meta := map[string]any{"mode": "dark"}
	event := BuildStoreEvent(StoreEventInput{
		ObjectType: " theme ",
		Key:        "wedding-theme",
		Op:         "toggle",
		ActorID:    " u-1 ",
		Metadata:   meta,
		Sequence:   7,
	})

	if event.Verb != "theme.toggle" {
		t.Fatalf("expected verb theme.toggle, got %s", event.Verb)
	}
	if event.ObjectType != "theme" || event.ObjectID != "wedding-theme" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "u-1" {
		t.Fatalf("expected trimmed actor, got %q", event.ActorID)
	}
	if event.Sequence != 7 || event.Metadata["mode"] != "dark" {
		t.Fatalf("unexpected metadata: %+v", event.Metadata)
	}
	event.Metadata["mode"] = "light"
	if meta["mode"] != "dark" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildStoreEventFallbacks(t *testing.T) {
	event := BuildStoreEvent(StoreEventInput{})
	if event.Verb != "store.updated" {
		t.Fatalf("expected fallback verb store.updated, got %s", event.Verb)
	}
	if event.ObjectID != ObjectStore {
		t.Fatalf("expected fallback object ID %q, got %q", ObjectStore, event.ObjectID)
	}
	if err := event.Validate(); err != nil {
		t.Fatalf("expected fallback event to validate, got %v", err)
	}
	if event.Metadata != nil {
		t.Fatalf("expected nil metadata, got %+v", event.Metadata)
	}
}

func TestBuildStoreEventWorksWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	err := hooks.Notify(context.Background(), BuildStoreEvent(StoreEventInput{
		ObjectType: "draft",
		Key:        "wedding-draft",
		Op:         "next_step",
	}))
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(capture.Events) != 1 || capture.Events[0].Verb != "draft.next_step" {
		t.Fatalf("expected captured draft.next_step, got %+v", capture.Events)
	}
}
