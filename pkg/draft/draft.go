// Package draft holds the onboarding wizard's field values and current step.
package draft

import (
	"context"
	"errors"
	"maps"

	store "github.com/goliatone/go-wedding-state"
)

// Key is the persistence slot used when the draft is persisted.
const Key = "wedding-draft"

// Draft is the wizard state. StepData collects every field entered so far,
// across steps.
type Draft struct {
	StepData    map[string]string `json:"stepData"`
	CurrentStep int               `json:"currentStep"`
}

func (d Draft) Validate() error {
	if d.CurrentStep < 0 {
		return errors.New("draft: negative step")
	}
	return nil
}

func empty() Draft {
	return Draft{StepData: map[string]string{}}
}

// Store wraps the generic engine with the wizard operations. The store does
// not validate field values or bound the step index; callers own both.
type Store struct {
	inner *store.Store[Draft]
}

// New builds an empty draft at step 0. The draft is memory-only unless a
// medium option is supplied.
func New(opts ...store.Option[Draft]) (*Store, error) {
	defaults := []store.Option[Draft]{store.WithName[Draft]("draft")}
	inner, err := store.New(empty(), append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner}, nil
}

func (s *Store) Get() Draft {
	return s.inner.Get()
}

func (s *Store) Subscribe(listener store.Listener[Draft]) func() {
	return s.inner.Subscribe(listener)
}

// UpdateDraft merges fields into StepData. Keys absent from fields keep their
// values; an empty string overwrites.
func (s *Store) UpdateDraft(fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	s.inner.Apply("update_draft", func(d *Draft) {
		d.StepData = store.MergeLayers(maps.Clone(fields), d.StepData)
	})
}

// NextStep advances one step.
func (s *Store) NextStep() {
	s.inner.Apply("next_step", func(d *Draft) {
		d.CurrentStep++
	})
}

// PrevStep goes back one step, stopping at 0.
func (s *Store) PrevStep() {
	s.inner.Apply("prev_step", func(d *Draft) {
		if d.CurrentStep > 0 {
			d.CurrentStep--
		}
	})
}

// Step returns the current step index.
func (s *Store) Step() int {
	return s.inner.Get().CurrentStep
}

// Field returns a single field value.
func (s *Store) Field(name string) (string, bool) {
	value, ok := s.inner.Get().StepData[name]
	return value, ok
}

// Reset clears every field and returns to step 0. Call it on submission or
// abandonment.
func (s *Store) Reset() {
	s.inner.Reset()
}

// Key is empty unless the draft was built with a medium.
func (s *Store) Key() string {
	return s.inner.Key()
}

func (s *Store) HasHydrated() bool {
	return s.inner.HasHydrated()
}

func (s *Store) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}

func (s *Store) Rehydrate(ctx context.Context) error {
	return s.inner.Rehydrate(ctx)
}

func (s *Store) ClearStorage(ctx context.Context) error {
	return s.inner.ClearStorage(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}
