package store

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-wedding-state/pkg/activity"
	"github.com/goliatone/go-wedding-state/pkg/medium"
)

const (
	defaultWriteTimeout   = 2 * time.Second
	defaultHydrateTimeout = 2 * time.Second
)

// Listener receives the committed state and the state it replaced. Both
// values are copies the listener may keep or modify.
type Listener[S any] func(state, prev S)

// Projection selects the subset of S written to the medium. The returned
// value must marshal to a JSON object whose fields decode back into S.
type Projection[S any] func(S) any

// Migration upgrades a persisted payload written under fromVersion.
type Migration func(state map[string]any, fromVersion int) (map[string]any, error)

// ActorFunc reports the identity responsible for a commit, used for activity
// events. Either value may be the zero state.
type ActorFunc[S any] func(prev, next S) string

// Option configures a Store.
type Option[S any] func(*config[S])

type config[S any] struct {
	name           string
	medium         medium.Medium
	key            string
	projection     Projection[S]
	version        int
	migrate        Migration
	writeTimeout   time.Duration
	hydrateTimeout time.Duration
	skipHydration  bool
	onRehydrate    func(state S, err error)
	logger         *slog.Logger
	registry       *Registry
	emitter        *activity.Emitter
	objectType     string
	actor          ActorFunc[S]
}

func applyOptions[S any](opts []Option[S]) config[S] {
	cfg := config[S]{
		writeTimeout:   defaultWriteTimeout,
		hydrateTimeout: defaultHydrateTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.projection == nil {
		cfg.projection = func(state S) any { return state }
	}
	if cfg.name == "" {
		cfg.name = cfg.key
	}
	if cfg.name == "" {
		cfg.name = "store"
	}
	return cfg
}

// WithName labels the store in logs and registry conflicts.
func WithName[S any](name string) Option[S] {
	return func(cfg *config[S]) {
		cfg.name = name
	}
}

// WithMedium persists the store under key.
func WithMedium[S any](m medium.Medium, key string) Option[S] {
	return func(cfg *config[S]) {
		cfg.medium = m
		cfg.key = key
	}
}

// WithProjection limits what is written to the medium.
func WithProjection[S any](projection Projection[S]) Option[S] {
	return func(cfg *config[S]) {
		cfg.projection = projection
	}
}

// WithVersion stamps persisted envelopes with version. Envelopes from other
// versions are dropped unless a migration is configured.
func WithVersion[S any](version int) Option[S] {
	return func(cfg *config[S]) {
		cfg.version = version
	}
}

// WithMigration upgrades envelopes written under older versions.
func WithMigration[S any](migrate Migration) Option[S] {
	return func(cfg *config[S]) {
		cfg.migrate = migrate
	}
}

// WithWriteTimeout bounds each durable write.
func WithWriteTimeout[S any](timeout time.Duration) Option[S] {
	return func(cfg *config[S]) {
		if timeout > 0 {
			cfg.writeTimeout = timeout
		}
	}
}

// WithHydrateTimeout bounds the read performed during construction.
func WithHydrateTimeout[S any](timeout time.Duration) Option[S] {
	return func(cfg *config[S]) {
		if timeout > 0 {
			cfg.hydrateTimeout = timeout
		}
	}
}

// WithSkipHydration leaves the initial state in place at construction; call
// Rehydrate once the caller is ready.
func WithSkipHydration[S any]() Option[S] {
	return func(cfg *config[S]) {
		cfg.skipHydration = true
	}
}

// WithOnRehydrate is called after every hydration attempt with the resulting
// state and the error that forced a fallback, if any.
func WithOnRehydrate[S any](fn func(state S, err error)) Option[S] {
	return func(cfg *config[S]) {
		cfg.onRehydrate = fn
	}
}

// WithLogger routes persistence diagnostics to logger.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(cfg *config[S]) {
		cfg.logger = logger
	}
}

// WithRegistry claims the store's key in registry at construction.
func WithRegistry[S any](registry *Registry) Option[S] {
	return func(cfg *config[S]) {
		cfg.registry = registry
	}
}

// WithActivity emits one activity event per commit through emitter.
func WithActivity[S any](emitter *activity.Emitter, objectType string) Option[S] {
	return func(cfg *config[S]) {
		cfg.emitter = emitter
		cfg.objectType = objectType
	}
}

// WithActor attributes activity events to the identity returned by fn.
func WithActor[S any](fn ActorFunc[S]) Option[S] {
	return func(cfg *config[S]) {
		cfg.actor = fn
	}
}
