// Package app builds the process-wide state handles once from configuration.
// Callers hold an *App and pass its stores to whatever needs them; nothing in
// this module keeps package-level state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	store "github.com/goliatone/go-wedding-state"
	"github.com/goliatone/go-wedding-state/pkg/activity"
	"github.com/goliatone/go-wedding-state/pkg/config"
	"github.com/goliatone/go-wedding-state/pkg/countdown"
	"github.com/goliatone/go-wedding-state/pkg/draft"
	"github.com/goliatone/go-wedding-state/pkg/gate"
	"github.com/goliatone/go-wedding-state/pkg/medium"
	"github.com/goliatone/go-wedding-state/pkg/session"
	"github.com/goliatone/go-wedding-state/pkg/theme"
)

type options struct {
	logger    *slog.Logger
	hooks     activity.Hooks
	medium    medium.Medium
	steps     map[int]gate.Step
	functions *gate.FunctionRegistry
	clock     countdown.Clock
}

// Option customises Open.
type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHooks receives activity events when activity is enabled in config.
func WithHooks(hooks ...activity.ActivityHook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks...)
	}
}

// WithMedium uses m instead of opening the configured driver. The caller
// keeps ownership and closes it.
func WithMedium(m medium.Medium) Option {
	return func(o *options) {
		o.medium = m
	}
}

// WithGateStep configures the wizard checks for step index.
func WithGateStep(index int, step gate.Step) Option {
	return func(o *options) {
		if o.steps == nil {
			o.steps = map[int]gate.Step{}
		}
		o.steps[index] = step
	}
}

// WithGateFunctions exposes registry to gate rules.
func WithGateFunctions(registry *gate.FunctionRegistry) Option {
	return func(o *options) {
		o.functions = registry
	}
}

// WithClock drives countdowns built by the App.
func WithClock(clock countdown.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// App owns the stores of one process.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Medium   medium.Medium
	Registry *store.Registry
	Activity *activity.Emitter

	Session *session.Store
	Theme   *theme.Store
	Draft   *draft.Store
	Gate    *gate.Gate

	clock      countdown.Clock
	ownsMedium bool
}

// Open builds every store from cfg. Stores rehydrate synchronously, so the
// returned App already reflects persisted state.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	a := &App{
		Config:   cfg,
		Logger:   o.logger,
		Registry: store.NewRegistry(),
		Activity: activity.NewEmitter(o.hooks, activity.Config{
			Enabled:     cfg.Activity.Enabled,
			Channel:     cfg.Activity.Channel,
			ObjectTypes: cfg.Activity.ObjectTypes,
		}),
		clock: o.clock,
	}

	if o.medium != nil {
		a.Medium = o.medium
	} else {
		m, err := medium.Open(ctx, cfg.Medium())
		if err != nil {
			return nil, fmt.Errorf("app: open medium: %w", err)
		}
		a.Medium = m
		a.ownsMedium = true
	}

	if err := a.build(o); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.Logger.Info("state stores ready",
		"medium", cfg.MediumDriver,
		"theme", string(a.Theme.Mode()),
		"authenticated", a.Session.Get().IsAuthenticated,
		"draft_persisted", cfg.PersistDraft,
	)
	return a, nil
}

func (a *App) build(o options) error {
	var err error
	a.Session, err = session.New(
		store.WithMedium[session.Session](a.Medium, session.Key),
		store.WithRegistry[session.Session](a.Registry),
		store.WithLogger[session.Session](a.Logger),
		store.WithWriteTimeout[session.Session](a.Config.WriteTimeout),
		store.WithActivity[session.Session](a.Activity, activity.ObjectSession),
	)
	if err != nil {
		return fmt.Errorf("app: session store: %w", err)
	}

	a.Theme, err = theme.NewWithDefault(a.Config.Theme(),
		store.WithMedium[theme.Theme](a.Medium, theme.Key),
		store.WithRegistry[theme.Theme](a.Registry),
		store.WithLogger[theme.Theme](a.Logger),
		store.WithWriteTimeout[theme.Theme](a.Config.WriteTimeout),
		store.WithActivity[theme.Theme](a.Activity, activity.ObjectTheme),
	)
	if err != nil {
		return fmt.Errorf("app: theme store: %w", err)
	}

	draftOpts := []store.Option[draft.Draft]{
		store.WithLogger[draft.Draft](a.Logger),
		store.WithActivity[draft.Draft](a.Activity, activity.ObjectDraft),
	}
	if a.Config.PersistDraft {
		draftOpts = append(draftOpts,
			store.WithMedium[draft.Draft](a.Medium, draft.Key),
			store.WithRegistry[draft.Draft](a.Registry),
			store.WithWriteTimeout[draft.Draft](a.Config.WriteTimeout),
		)
	}
	a.Draft, err = draft.New(draftOpts...)
	if err != nil {
		return fmt.Errorf("app: draft store: %w", err)
	}

	evaluator, err := gate.NewEvaluator(a.Config.GateEngine, gate.NewMemoryCache(), o.functions)
	if err != nil {
		return fmt.Errorf("app: gate: %w", err)
	}
	gateOpts := []gate.Option{
		gate.WithEvaluator(evaluator),
		gate.WithEvaluatorLogger(gate.SlogEvaluatorLogger(a.Logger)),
	}
	for index, step := range o.steps {
		gateOpts = append(gateOpts, gate.WithStep(index, step))
	}
	a.Gate, err = gate.New(gateOpts...)
	if err != nil {
		return fmt.Errorf("app: gate: %w", err)
	}
	return nil
}

// ThemeEffect attaches a synchronization effect for doc.
func (a *App) ThemeEffect(doc theme.Document, opts ...theme.EffectOption) *theme.Effect {
	opts = append([]theme.EffectOption{theme.WithEffectLogger(a.Logger)}, opts...)
	return theme.NewEffect(a.Theme, doc, opts...)
}

func (a *App) countdownOptions(opts []countdown.Option) []countdown.Option {
	defaults := []countdown.Option{
		countdown.WithPeriod(a.Config.CountdownTick),
		countdown.WithLogger(a.Logger),
	}
	if a.clock != nil {
		defaults = append(defaults, countdown.WithClock(a.clock))
	}
	return append(defaults, opts...)
}

// Countdown builds a projector ticking at the configured period. The caller
// starts and stops it.
func (a *App) Countdown(target time.Time, opts ...countdown.Option) *countdown.Projector {
	return countdown.New(target, a.countdownOptions(opts)...)
}

// CountdownFromString is Countdown for a textual target.
func (a *App) CountdownFromString(target string, opts ...countdown.Option) *countdown.Projector {
	return countdown.NewFromString(target, a.countdownOptions(opts)...)
}

// Close flushes every store and closes the medium when Open created it.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Session != nil {
		errs = append(errs, a.Session.Close(ctx))
	}
	if a.Theme != nil {
		errs = append(errs, a.Theme.Close(ctx))
	}
	if a.Draft != nil {
		errs = append(errs, a.Draft.Close(ctx))
	}
	if a.ownsMedium && a.Medium != nil {
		errs = append(errs, medium.Close(a.Medium))
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("state stores closed with errors", "error", err)
		return err
	}
	return nil
}
