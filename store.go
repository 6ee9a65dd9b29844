package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-wedding-state/internal/hydrate"
	"github.com/goliatone/go-wedding-state/pkg/activity"
	"github.com/goliatone/go-wedding-state/pkg/medium"
)

// Store is a mutable state container. Construct one per process lifetime and
// share it by reference.
//
// State crosses the store boundary through Clone: Get, listeners and
// mutation callbacks all see deep copies. Clone copies exported fields only,
// so S should keep its state in exported fields; unexported fields are reset
// to their zero value, starting with the copy of initial taken by New.
type Store[S any] struct {
	cfg     config[S]
	initial S
	decoder *hydrate.Decoder[S]
	writer  *writer

	mu     sync.RWMutex
	state  S
	seq    uint64
	subs   []subscription[S]
	nextID uint64

	hydrated  atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

type subscription[S any] struct {
	id uint64
	fn Listener[S]
}

// New constructs a store seeded with initial and rehydrates it from the
// configured medium. Hydration problems never fail construction; the store
// keeps initial and logs the cause. Errors are returned only for
// misconfiguration such as a missing or already claimed key.
//
// initial is deep-copied with Clone; unexported fields of S are not kept.
func New[S any](initial S, opts ...Option[S]) (*Store[S], error) {
	cfg := applyOptions(opts)
	if cfg.medium != nil {
		if cfg.key == "" {
			return nil, ErrKeyRequired
		}
		if err := medium.ValidateKey(cfg.key); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		if cfg.registry != nil {
			if err := cfg.registry.Claim(cfg.key, cfg.name); err != nil {
				return nil, err
			}
		}
	}

	s := &Store[S]{
		cfg:     cfg,
		initial: Clone(initial),
		state:   Clone(initial),
	}
	if cfg.medium == nil {
		s.hydrated.Store(true)
		return s, nil
	}

	decoderOpts := []hydrate.DecoderOption[S]{
		hydrate.WithVersion[S](cfg.version),
		hydrate.WithPostHook[S](func(_ hydrate.Context, value *S) error {
			return validateValue(*value)
		}),
	}
	if cfg.migrate != nil {
		decoderOpts = append(decoderOpts, hydrate.WithMigration[S](hydrate.Migration(cfg.migrate)))
	}
	s.decoder = hydrate.NewDecoder(decoderOpts...)
	s.writer = newWriter(cfg.medium, cfg.key, cfg.version, cfg.writeTimeout, cfg.logger)

	if !cfg.skipHydration {
		s.hydrateInitial()
	}
	return s, nil
}

func (s *Store[S]) hydrateInitial() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.hydrateTimeout)
	defer cancel()

	value, found, migrated, err := s.load(ctx, Clone(s.initial))
	if err != nil {
		s.cfg.logger.Warn("store rehydration fell back to initial state", "store", s.cfg.name, "key", s.cfg.key, "error", err)
	}
	if found && err == nil {
		s.mu.Lock()
		s.state = value
		s.mu.Unlock()
		if migrated {
			s.writer.enqueue(s.nextSeq(), s.cfg.projection(value))
		}
	}
	s.hydrated.Store(true)
	if s.cfg.onRehydrate != nil {
		s.cfg.onRehydrate(s.Get(), err)
	}
}

// nextSeq reserves a sequence number for writes that do not change the
// in-memory state.
func (s *Store[S]) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *Store[S]) load(ctx context.Context, base S) (S, bool, bool, error) {
	var zero S
	raw, ok, err := s.cfg.medium.Get(ctx, s.cfg.key)
	if err != nil {
		return zero, false, false, wrapPersistError("read", s.cfg.key, err)
	}
	if !ok {
		return zero, false, false, nil
	}
	result, err := s.decoder.Decode(s.cfg.key, raw, base)
	if err != nil {
		return zero, false, false, wrapPersistError("decode", s.cfg.key, err)
	}
	return result.Value, true, result.Migrated, nil
}

// Get returns a copy of the current state.
func (s *Store[S]) Get() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Clone(s.state)
}

// Sequence reports how many commits the store has applied.
func (s *Store[S]) Sequence() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Initial returns a copy of the state the store was constructed with.
func (s *Store[S]) Initial() S {
	return Clone(s.initial)
}

// Set shallow-merges partial into the current state: each non-zero top-level
// field of partial replaces the current field. Use Update to write zero
// values.
func (s *Store[S]) Set(partial S) {
	s.commit("set", func(current S) S {
		return MergeShallow(current, partial)
	}, true)
}

// Update applies fn to a copy of the current state and commits the result as
// one change.
func (s *Store[S]) Update(fn func(*S)) {
	s.Apply("update", fn)
}

// Apply is Update with an operation name reported in activity events. op
// should be a snake_case identifier such as "set_mode".
func (s *Store[S]) Apply(op string, fn func(*S)) {
	if fn == nil {
		return
	}
	s.commit(op, func(current S) S {
		fn(&current)
		return current
	}, true)
}

// Replace swaps the whole state for next.
func (s *Store[S]) Replace(next S) {
	s.commit("replace", func(S) S {
		return Clone(next)
	}, true)
}

// Reset restores the initial state, ephemeral fields included.
func (s *Store[S]) Reset() {
	s.commit("reset", func(S) S {
		return Clone(s.initial)
	}, true)
}

// Subscribe registers listener for every subsequent commit. The returned
// function removes it and is safe to call more than once.
func (s *Store[S]) Subscribe(listener Listener[S]) func() {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription[S]{id: id, fn: listener})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.subs = slices.DeleteFunc(s.subs, func(sub subscription[S]) bool {
				return sub.id == id
			})
		})
	}
}

func (s *Store[S]) commit(op string, mutate func(S) S, persist bool) {
	prev, next, seq, subs := s.apply(mutate)

	if persist && s.writer != nil {
		if !s.writer.enqueue(seq, s.cfg.projection(next)) {
			s.cfg.logger.Debug("store snapshot not scheduled", "store", s.cfg.name, "key", s.cfg.key, "seq", seq)
		}
	}
	for _, sub := range subs {
		sub.fn(Clone(next), Clone(prev))
	}
	s.emit(op, seq, prev, next)
}

func (s *Store[S]) apply(mutate func(S) S) (S, S, uint64, []subscription[S]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	next := mutate(Clone(prev))
	s.state = next
	s.seq++
	return prev, next, s.seq, slices.Clone(s.subs)
}

func (s *Store[S]) emit(op string, seq uint64, prev, next S) {
	if !s.cfg.emitter.Accepts(s.cfg.objectType) {
		return
	}
	input := activity.StoreEventInput{
		ObjectType: s.cfg.objectType,
		Key:        s.cfg.key,
		Op:         op,
		Sequence:   seq,
	}
	if input.Key == "" {
		input.Key = s.cfg.name
	}
	if s.cfg.actor != nil {
		actor := s.cfg.actor(prev, next)
		input.ActorID = actor
		input.UserID = actor
	}
	if err := s.cfg.emitter.EmitStore(context.Background(), input); err != nil {
		s.cfg.logger.Warn("store activity hook failed", "store", s.cfg.name, "op", op, "error", err)
	}
}

// HasHydrated reports whether the construction-time hydration attempt has
// finished. Stores without a medium are hydrated from the start.
func (s *Store[S]) HasHydrated() bool {
	return s.hydrated.Load()
}

// Rehydrate reloads the persisted snapshot over the current state and
// notifies subscribers. Unlike construction, failures are returned and leave
// the state untouched. A missing slot is not an error.
func (s *Store[S]) Rehydrate(ctx context.Context) error {
	if s.cfg.medium == nil {
		return ErrNotPersisted
	}
	if s.closed.Load() {
		return ErrClosed
	}
	value, found, migrated, err := s.load(ctx, s.Get())
	s.hydrated.Store(true)
	if s.cfg.onRehydrate != nil {
		defer func() { s.cfg.onRehydrate(s.Get(), err) }()
	}
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	s.commit("rehydrate", func(S) S { return value }, migrated)
	return nil
}

// Flush waits until the last committed state has been handed to the medium
// and returns the outcome of that write.
func (s *Store[S]) Flush(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.flush(ctx)
}

// ClearStorage drops any unwritten snapshot and deletes the persisted slot.
// The in-memory state is not changed; the next commit writes the slot again.
func (s *Store[S]) ClearStorage(ctx context.Context) error {
	if s.writer == nil {
		return ErrNotPersisted
	}
	if s.closed.Load() {
		return ErrClosed
	}
	s.writer.discard()
	_ = s.writer.flush(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.cfg.medium.Delete(ctx, s.cfg.key); err != nil {
		return wrapPersistError("delete", s.cfg.key, err)
	}
	return nil
}

// Close flushes pending writes, stops the writer and releases the key.
// Commits after Close still update memory and notify subscribers but are no
// longer persisted; Rehydrate and ClearStorage return ErrClosed.
func (s *Store[S]) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		if s.writer == nil {
			return
		}
		s.closed.Store(true)
		s.closeErr = s.writer.close(ctx)
		if s.cfg.registry != nil {
			s.cfg.registry.Release(s.cfg.key)
		}
	})
	return s.closeErr
}

// Key returns the persistence key, empty for memory-only stores.
func (s *Store[S]) Key() string {
	return s.cfg.key
}

func validateValue[S any](value S) error {
	if v, ok := any(value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	if v, ok := any(&value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}
