package countdown

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

const DefaultPeriod = time.Second

// Option configures a Projector.
type Option func(*Projector)

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(p *Projector) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithPeriod sets the tick period.
func WithPeriod(period time.Duration) Option {
	return func(p *Projector) {
		if period > 0 {
			p.period = period
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Projector) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLocation sets the zone used by NewFromString for zone-less targets.
func WithLocation(loc *time.Location) Option {
	return func(p *Projector) {
		if loc != nil {
			p.location = loc
		}
	}
}

type subscription struct {
	id uint64
	fn func(Snapshot)
}

// Projector recomputes a Snapshot on every tick until the target passes. It
// owns exactly one goroutine between Start and termination.
type Projector struct {
	target   time.Time
	clock    Clock
	period   time.Duration
	logger   *slog.Logger
	location *time.Location

	mu      sync.Mutex
	current Snapshot
	subs    []subscription
	nextID  uint64
	started bool
	stopped bool

	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
	closeDone sync.Once
}

func newProjector(opts []Option) *Projector {
	p := &Projector{
		clock:    SystemClock(),
		period:   DefaultPeriod,
		logger:   slog.New(slog.DiscardHandler),
		location: time.Local,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// New computes the first snapshot for target immediately. A target already
// in the past leaves the projector terminated.
func New(target time.Time, opts ...Option) *Projector {
	p := newProjector(opts)
	p.target = target
	p.current = Compute(target, p.clock.Now())
	if p.current.Terminal() {
		p.terminate()
	}
	return p
}

// NewFromString parses text with ParseTargetIn. Unparseable text yields a
// terminated projector whose snapshot is Invalid and Expired.
func NewFromString(text string, opts ...Option) *Projector {
	p := newProjector(opts)
	target, err := ParseTargetIn(text, p.location)
	if err != nil {
		p.logger.Warn("countdown target rejected", "target", text, "error", err)
		p.current = invalidSnapshot()
		p.terminate()
		return p
	}
	p.target = target
	p.current = Compute(target, p.clock.Now())
	if p.current.Terminal() {
		p.terminate()
	}
	return p
}

func (p *Projector) terminate() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.closeDone.Do(func() { close(p.done) })
}

// Target returns the instant being counted down to. It is zero for invalid
// targets.
func (p *Projector) Target() time.Time {
	return p.target
}

// Snapshot returns the latest snapshot.
func (p *Projector) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe registers fn for every snapshot emitted by the tick loop. fn runs
// on the projector goroutine and must not block.
func (p *Projector) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs = append(p.subs, subscription{id: id, fn: fn})
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.subs = slices.DeleteFunc(p.subs, func(s subscription) bool { return s.id == id })
		})
	}
}

// Start begins ticking. It is a no-op once started, stopped or terminal. The
// loop ends when the target passes, Stop is called or ctx is done.
func (p *Projector) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	ticker := p.clock.NewTicker(p.period)
	go p.run(ctx, ticker)
}

func (p *Projector) run(ctx context.Context, ticker Ticker) {
	defer p.closeDone.Do(func() { close(p.done) })
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("countdown stopped", "reason", ctx.Err())
			return
		case <-p.stop:
			return
		case now := <-ticker.C():
			snapshot := Compute(p.target, now)
			p.publish(snapshot)
			if snapshot.Expired {
				p.logger.Debug("countdown expired", "target", p.target)
				return
			}
		}
	}
}

func (p *Projector) publish(snapshot Snapshot) {
	p.mu.Lock()
	p.current = snapshot
	subs := slices.Clone(p.subs)
	p.mu.Unlock()
	for _, sub := range subs {
		sub.fn(snapshot)
	}
}

// Stop ends ticking. It is safe to call more than once and before Start.
func (p *Projector) Stop() {
	p.mu.Lock()
	started := p.started
	p.stopped = true
	p.mu.Unlock()

	p.stopOnce.Do(func() { close(p.stop) })
	if !started {
		p.closeDone.Do(func() { close(p.done) })
	}
}

// Done is closed once the projector will emit no further snapshots.
func (p *Projector) Done() <-chan struct{} {
	return p.done
}
