package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AltairaLabs/portalops/internal/types"
)

func TestSweeper_SweepOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	metrics := MustNewMetrics(prometheus.NewRegistry())
	f.sessions.metrics = metrics

	stale, _ := f.sessions.RequestSession(ctx, "t1")
	f.clock.Advance(20 * time.Minute)
	fresh, _ := f.sessions.RequestSession(ctx, "t2")
	f.clock.Advance(15 * time.Minute)

	sweeper := NewSweeper(f.sessions, time.Minute, discardLogger())
	if n := sweeper.SweepOnce(ctx); n != 1 {
		t.Errorf("Expected 1 expired session, got %d", n)
	}

	got, _ := f.records.GetSession(ctx, stale.ID)
	if got.Status != types.SessionExpired {
		t.Errorf("Expected stale session EXPIRED, got %s", got.Status)
	}
	got, _ = f.records.GetSession(ctx, fresh.ID)
	if got.Status != types.SessionRequested {
		t.Errorf("Expected fresh session untouched, got %s", got.Status)
	}

	if live := testutil.ToFloat64(metrics.liveSessions); live != 1 {
		t.Errorf("Expected live gauge 1, got %v", live)
	}
	if expired := testutil.ToFloat64(metrics.sessionEvents.WithLabelValues(string(EventSessionExpired))); expired != 1 {
		t.Errorf("Expected 1 expired event counted, got %v", expired)
	}

	if n := sweeper.SweepOnce(ctx); n != 0 {
		t.Errorf("Expected second sweep to find nothing, got %d", n)
	}
}

func TestSweeper_Disabled(t *testing.T) {
	f := newFixture(t)
	sweeper := NewSweeper(f.sessions, 0, discardLogger())
	if sweeper.Enabled() {
		t.Error("Expected sweeper with zero interval to be disabled")
	}

	done := make(chan error, 1)
	go func() { done <- sweeper.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Disabled sweeper should return immediately")
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	sweeper := NewSweeper(f.sessions, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Sweeper did not stop after cancel")
	}
}
