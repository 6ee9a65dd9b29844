package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-wedding-state/internal/hydrate"
	"github.com/goliatone/go-wedding-state/pkg/medium"
)

type pendingWrite struct {
	seq   uint64
	state any
}

// writer serialises durable writes for one key. It keeps at most one pending
// snapshot: a newer commit replaces an unwritten older one.
type writer struct {
	medium  medium.Medium
	key     string
	version int
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	pending  *pendingWrite
	highest  uint64
	inflight bool
	written  uint64
	lastErr  error
	progress chan struct{}
	closed   bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newWriter(m medium.Medium, key string, version int, timeout time.Duration, logger *slog.Logger) *writer {
	w := &writer{
		medium:   m,
		key:      key,
		version:  version,
		timeout:  timeout,
		logger:   logger,
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// enqueue schedules state for writing. Snapshots older than one already
// accepted are ignored so the medium never moves backwards.
func (w *writer) enqueue(seq uint64, state any) bool {
	w.mu.Lock()
	if w.closed || seq <= w.highest {
		w.mu.Unlock()
		return false
	}
	w.highest = seq
	w.pending = &pendingWrite{seq: seq, state: state}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// discard drops the pending snapshot without writing it.
func (w *writer) discard() {
	w.mu.Lock()
	w.pending = nil
	w.mu.Unlock()
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *writer) drain() {
	for {
		w.mu.Lock()
		next := w.pending
		w.pending = nil
		w.inflight = next != nil
		w.mu.Unlock()
		if next == nil {
			return
		}

		err := w.write(next)

		w.mu.Lock()
		w.inflight = false
		w.written = next.seq
		w.lastErr = err
		close(w.progress)
		w.progress = make(chan struct{})
		w.mu.Unlock()
	}
}

func (w *writer) write(p *pendingWrite) error {
	payload, err := hydrate.EncodeEnvelope(p.state, w.version)
	if err != nil {
		w.logger.Warn("store snapshot encode failed", "key", w.key, "seq", p.seq, "error", err)
		return wrapPersistError("encode", w.key, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.medium.Set(ctx, w.key, payload); err != nil {
		w.logger.Warn("store snapshot write failed", "key", w.key, "seq", p.seq, "error", err)
		return wrapPersistError("write", w.key, err)
	}
	w.logger.Debug("store snapshot written", "key", w.key, "seq", p.seq, "bytes", len(payload))
	return nil
}

// flush blocks until nothing is pending or in flight and reports the outcome
// of the last completed write.
func (w *writer) flush(ctx context.Context) error {
	for {
		w.mu.Lock()
		if w.pending == nil && !w.inflight {
			err := w.lastErr
			w.mu.Unlock()
			return err
		}
		progress := w.progress
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-progress:
		case <-w.done:
			w.mu.Lock()
			err := w.lastErr
			w.mu.Unlock()
			return err
		}
	}
}

func (w *writer) close(ctx context.Context) error {
	err := w.flush(ctx)

	w.mu.Lock()
	alreadyClosed := w.closed
	w.closed = true
	w.mu.Unlock()
	if !alreadyClosed {
		close(w.stop)
	}

	select {
	case <-w.done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func (w *writer) lastWritten() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}
