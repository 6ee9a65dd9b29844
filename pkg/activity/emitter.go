package activity

import (
	"context"
	"strings"
)

// DefaultChannel is stamped on events emitted without a channel.
const DefaultChannel = "state"

// Config controls which store commits are reported.
type Config struct {
	Enabled bool
	Channel string
	// ObjectTypes limits emission to the listed store families. Empty
	// reports every family.
	ObjectTypes []string
}

// Emitter turns store commits into events for a set of hooks. A nil
// *Emitter is valid and never emits.
type Emitter struct {
	hooks       Hooks
	channel     string
	objectTypes []string
}

// NewEmitter returns an emitter, or nil when cfg is disabled or no hooks
// are given.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	hooks = compactHooks(hooks)
	if !cfg.Enabled || len(hooks) == 0 {
		return nil
	}
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &Emitter{
		hooks:       hooks,
		channel:     channel,
		objectTypes: append([]string(nil), cfg.ObjectTypes...),
	}
}

// Enabled reports whether any emission will be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil
}

// Accepts reports whether commits of objectType are reported.
func (e *Emitter) Accepts(objectType string) bool {
	return e.Enabled() && MatchesObjectType(e.objectTypes, objectType)
}

// EmitStore reports one store commit.
func (e *Emitter) EmitStore(ctx context.Context, input StoreEventInput) error {
	return e.Emit(ctx, BuildStoreEvent(input))
}

// Emit forwards a prepared event, applying the default channel.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Accepts(event.ObjectType) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}
