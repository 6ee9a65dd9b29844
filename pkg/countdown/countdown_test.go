package countdown

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func TestComputeDecomposes(t *testing.T) {
	cases := []struct {
		name  string
		delta time.Duration
		want  Snapshot
	}{
		{name: "one of each", delta: 90061 * time.Second, want: Snapshot{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}},
		{name: "just under four days", delta: 4*24*time.Hour - time.Second, want: Snapshot{Days: 3, Hours: 23, Minutes: 59, Seconds: 59}},
		{name: "partial second dropped", delta: 1500 * time.Millisecond, want: Snapshot{Seconds: 1}},
		{name: "under a second", delta: 300 * time.Millisecond, want: Snapshot{}},
		{name: "now", delta: 0, want: Snapshot{Expired: true}},
		{name: "past", delta: -time.Hour, want: Snapshot{Expired: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Compute(base.Add(tc.delta), base))
		})
	}
}

func TestSnapshotRemaining(t *testing.T) {
	snap := Compute(base.Add(90061*time.Second), base)
	require.Equal(t, 90061*time.Second, snap.Remaining())
}

func TestComputeBeyondDurationRange(t *testing.T) {
	// 400 Gregorian years are exactly 146097 days.
	snap := Compute(base.AddDate(400, 0, 0), base)
	require.Equal(t, Snapshot{Days: 146097}, snap)
	require.Equal(t, time.Duration(math.MaxInt64), snap.Remaining())

	past := Compute(base, base.AddDate(400, 0, 0))
	require.True(t, past.Expired)
}

func TestComputeBorrowsAcrossSecondBoundary(t *testing.T) {
	now := base.Add(800 * time.Millisecond)
	target := base.Add(2*time.Second + 100*time.Millisecond)
	require.Equal(t, Snapshot{Seconds: 1}, Compute(target, now))
}

func TestNewComputesFirstSnapshotSynchronously(t *testing.T) {
	clock := newManualClock(base)
	p := New(base.Add(90061*time.Second), WithClock(clock))

	require.Equal(t, Snapshot{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}, p.Snapshot())
	select {
	case <-p.Done():
		t.Fatalf("future countdown must not be done")
	default:
	}
}

func TestPastTargetIsTerminal(t *testing.T) {
	clock := newManualClock(base)
	p := New(base.Add(-time.Minute), WithClock(clock))

	require.Equal(t, Snapshot{Expired: true}, p.Snapshot())
	<-p.Done()

	p.Start(context.Background())
	select {
	case <-clock.tickers:
		t.Fatalf("expired countdown must not schedule ticks")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestTicksUntilExpiry(t *testing.T) {
	clock := newManualClock(base)
	p := New(base.Add(2*time.Second), WithClock(clock))
	snapshots := make(chan Snapshot, 8)
	p.Subscribe(func(s Snapshot) { snapshots <- s })

	p.Start(context.Background())
	ticker := clock.ticker(t)

	clock.advance(t, ticker, time.Second)
	require.Equal(t, Snapshot{Seconds: 1}, <-snapshots)

	clock.advance(t, ticker, time.Second)
	require.Equal(t, Snapshot{Expired: true}, <-snapshots)

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatalf("projector did not stop on expiry")
	}
	require.True(t, ticker.stopped.Load())
	require.True(t, p.Snapshot().Expired)
}

func TestStopEndsLoop(t *testing.T) {
	clock := newManualClock(base)
	p := New(base.Add(time.Hour), WithClock(clock))
	p.Start(context.Background())
	ticker := clock.ticker(t)

	p.Stop()
	p.Stop()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatalf("projector did not stop")
	}
	require.True(t, ticker.stopped.Load())
}

func TestContextCancelEndsLoop(t *testing.T) {
	clock := newManualClock(base)
	p := New(base.Add(time.Hour), WithClock(clock))
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	ticker := clock.ticker(t)

	cancel()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatalf("projector ignored cancellation")
	}
	require.True(t, ticker.stopped.Load())
}

func TestStopBeforeStart(t *testing.T) {
	clock := newManualClock(base)
	p := New(base.Add(time.Hour), WithClock(clock))
	p.Stop()
	<-p.Done()

	p.Start(context.Background())
	select {
	case <-clock.tickers:
		t.Fatalf("stopped projector must not start")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	clock := newManualClock(base)
	p := New(base.Add(time.Hour), WithClock(clock))
	calls := make(chan Snapshot, 4)
	unsubscribe := p.Subscribe(func(s Snapshot) { calls <- s })
	unsubscribe()
	unsubscribe()

	p.Start(context.Background())
	defer p.Stop()
	ticker := clock.ticker(t)
	clock.advance(t, ticker, time.Second)
	clock.advance(t, ticker, time.Second)

	require.Len(t, calls, 0)
}

func TestNewFromStringInvalidIsTerminal(t *testing.T) {
	clock := newManualClock(base)
	p := NewFromString("next june", WithClock(clock))

	snap := p.Snapshot()
	require.True(t, snap.Invalid)
	require.True(t, snap.Expired)
	require.Zero(t, snap.Remaining())
	<-p.Done()

	p.Start(context.Background())
	select {
	case <-clock.tickers:
		t.Fatalf("invalid countdown must not tick")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestNewFromStringUsesLocation(t *testing.T) {
	clock := newManualClock(base)
	p := NewFromString("2026-10-19 12:00", WithClock(clock), WithLocation(time.UTC))
	require.Equal(t, Snapshot{Days: 1}, p.Snapshot())
	require.True(t, p.Target().Equal(base.Add(24*time.Hour)))
}

func TestParseTarget(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{in: "2026-06-20T15:30:00Z", want: time.Date(2026, 6, 20, 15, 30, 0, 0, time.UTC)},
		{in: "2026-06-20T15:30:00+02:00", want: time.Date(2026, 6, 20, 13, 30, 0, 0, time.UTC)},
		{in: "2026-06-20T15:30:00", want: time.Date(2026, 6, 20, 15, 30, 0, 0, time.UTC)},
		{in: "2026-06-20 15:30", want: time.Date(2026, 6, 20, 15, 30, 0, 0, time.UTC)},
		{in: " 2026-06-20 ", want: time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseTargetIn(tc.in, time.UTC)
		require.NoError(t, err, tc.in)
		require.True(t, got.Equal(tc.want), "%s: got %v", tc.in, got)
	}

	for _, bad := range []string{"", "tomorrow", "2026-13-01", "20/06/2026"} {
		_, err := ParseTargetIn(bad, time.UTC)
		require.ErrorIs(t, err, ErrInvalidTarget, bad)
	}
}
