package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrVersionMismatch reports a persisted envelope written under a different
// schema version with no migration able to upgrade it.
var ErrVersionMismatch = errors.New("hydrate: version mismatch")

// Context carries identifiers tied to a persisted payload.
type Context struct {
	Key     string
	Version int
}

// Envelope is the persisted representation of a store snapshot.
type Envelope struct {
	State   map[string]any `json:"state"`
	Version int            `json:"version"`
}

// ParseEnvelope decodes raw into an Envelope. A payload without a "state"
// object is rejected.
func ParseEnvelope(raw string) (Envelope, error) {
	if strings.TrimSpace(raw) == "" {
		return Envelope{}, fmt.Errorf("hydrate: empty payload")
	}
	var env Envelope
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("hydrate: parse envelope: %w", err)
	}
	if env.State == nil {
		return Envelope{}, fmt.Errorf("hydrate: envelope has no state")
	}
	return env, nil
}

// EncodeEnvelope serialises state under version.
func EncodeEnvelope(state any, version int) (string, error) {
	payload := struct {
		State   any `json:"state"`
		Version int `json:"version"`
	}{State: state, Version: version}
	buffer, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("hydrate: encode envelope: %w", err)
	}
	return string(buffer), nil
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated value after decoding.
type PostHook[T any] func(Context, *T) error

// Migration upgrades a payload persisted under fromVersion to the current
// version.
type Migration func(state map[string]any, fromVersion int) (map[string]any, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts persisted envelopes into strongly typed values.
type Decoder[T any] struct {
	version      int
	migrate      Migration
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
}

// WithVersion sets the version the decoder expects.
func WithVersion[T any](version int) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.version = version
	}
}

// WithMigration upgrades envelopes persisted under another version.
func WithMigration[T any](migrate Migration) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.migrate = migrate
	}
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithDisallowUnknownFields invokes json.Decoder.DisallowUnknownFields.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Result reports the decoded value and whether a migration ran.
type Result[T any] struct {
	Value    T
	Migrated bool
}

// Decode parses raw and decodes its state over base: fields present in the
// payload replace the matching fields of base, absent fields keep base's
// values. base must already be detached from any shared state.
func (d *Decoder[T]) Decode(key, raw string, base T) (Result[T], error) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		return Result[T]{}, fmt.Errorf("hydrate: key %q: %w", key, err)
	}

	ctx := Context{Key: key, Version: env.Version}
	current := env.State
	migrated := false
	if env.Version != d.version {
		if d.migrate == nil {
			return Result[T]{}, fmt.Errorf("%w: key %q stored %d, want %d", ErrVersionMismatch, key, env.Version, d.version)
		}
		next, err := d.migrate(current, env.Version)
		if err != nil {
			return Result[T]{}, fmt.Errorf("hydrate: migrate key %q from %d: %w", key, env.Version, err)
		}
		if next == nil {
			return Result[T]{}, fmt.Errorf("hydrate: migrate key %q from %d returned no state", key, env.Version)
		}
		current = next
		migrated = true
		ctx.Version = d.version
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return Result[T]{}, fmt.Errorf("hydrate: pre-hook for key %q failed: %w", key, err)
		}
		if next != nil {
			current = next
		}
	}

	buffer, err := json.Marshal(current)
	if err != nil {
		return Result[T]{}, fmt.Errorf("hydrate: marshal payload for key %q: %w", key, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	result := base
	if err := decoder.Decode(&result); err != nil {
		return Result[T]{}, fmt.Errorf("hydrate: decode key %q: %w", key, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return Result[T]{}, fmt.Errorf("hydrate: post-hook for key %q failed: %w", key, err)
		}
	}

	return Result[T]{Value: result, Migrated: migrated}, nil
}
