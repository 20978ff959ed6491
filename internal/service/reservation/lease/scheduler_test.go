package lease

import (
	"context"
	"sync"
	"testing"
	"time"
)

// expiryRecorder collects fired hold ids and lets tests wait for them.
type expiryRecorder struct {
	mu    sync.Mutex
	fired []string
	ch    chan string
}

func newExpiryRecorder() *expiryRecorder {
	return &expiryRecorder{ch: make(chan string, 16)}
}

func (r *expiryRecorder) onExpire(holdID string) {
	r.mu.Lock()
	r.fired = append(r.fired, holdID)
	r.mu.Unlock()
	r.ch <- holdID
}

func (r *expiryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func TestScheduler_FiresAfterTTL(t *testing.T) {
	t.Parallel()

	rec := newExpiryRecorder()
	s := NewScheduler(rec.onExpire)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	before := time.Now()
	s.Start("hold-1", 30*time.Millisecond)

	select {
	case holdID := <-rec.ch:
		if holdID != "hold-1" {
			t.Fatalf("expected hold-1, got %s", holdID)
		}
		if elapsed := time.Since(before); elapsed < 30*time.Millisecond {
			t.Fatalf("fired after %v, before the ttl elapsed", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expiry never fired")
	}

	if s.Pending() != 0 {
		t.Fatalf("expected no pending tasks, got %d", s.Pending())
	}
}

func TestScheduler_CancelPreemptsExpiry(t *testing.T) {
	t.Parallel()

	rec := newExpiryRecorder()
	s := NewScheduler(rec.onExpire)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	stop := s.Start("hold-1", 50*time.Millisecond)
	stop()

	select {
	case holdID := <-rec.ch:
		t.Fatalf("cancelled task fired for %s", holdID)
	case <-time.After(200 * time.Millisecond):
	}
	if rec.count() != 0 {
		t.Fatalf("expected no expirations, got %d", rec.count())
	}
}

func TestScheduler_OrdersIndependentTimers(t *testing.T) {
	t.Parallel()

	rec := newExpiryRecorder()
	s := NewScheduler(rec.onExpire)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// Armed out of order on purpose.
	s.Start("slow", 120*time.Millisecond)
	s.Start("fast", 20*time.Millisecond)

	first := <-rec.ch
	if first != "fast" {
		t.Fatalf("expected fast to fire first, got %s", first)
	}
	second := <-rec.ch
	if second != "slow" {
		t.Fatalf("expected slow to fire second, got %s", second)
	}
}

func TestScheduler_StopsWithContext(t *testing.T) {
	t.Parallel()

	rec := newExpiryRecorder()
	s := NewScheduler(rec.onExpire)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	s.Start("hold-1", time.Hour)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("scheduler loop did not stop on context cancellation")
	}
}
