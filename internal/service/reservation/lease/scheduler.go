package lease

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// ExpireFunc is invoked once a hold's lease window elapses. The callback must
// go through Registry.Claim itself; the scheduler makes no claim guarantees.
type ExpireFunc func(holdID string)

type task struct {
	holdID    string
	at        time.Time
	cancelled bool
}

type taskHeap []*task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(*task)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Scheduler arranges one deferred expiration per outstanding hold. A single
// goroutine drains a deadline min-heap, so resource usage stays bounded no
// matter how many holds are open at once.
type Scheduler struct {
	onExpire ExpireFunc

	mu    sync.Mutex
	tasks taskHeap
	wake  chan struct{}
}

func NewScheduler(onExpire ExpireFunc) *Scheduler {
	s := &Scheduler{
		onExpire: onExpire,
		wake:     make(chan struct{}, 1),
	}
	heap.Init(&s.tasks)
	return s
}

// Start schedules onExpire(holdID) after ttl and returns a cancel handle.
// Cancellation is best-effort: once the callback has been dispatched it
// cannot be stopped, and correctness never depends on it.
func (s *Scheduler) Start(holdID string, ttl time.Duration) (cancel func()) {
	t := &task{holdID: holdID, at: time.Now().Add(ttl)}

	s.mu.Lock()
	heap.Push(&s.tasks, t)
	s.mu.Unlock()
	s.signal()

	return func() {
		s.mu.Lock()
		t.cancelled = true
		s.mu.Unlock()
	}
}

// Run drains the heap until ctx is done. Call it from exactly one goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		var due []*task

		s.mu.Lock()
		now := time.Now()
		for s.tasks.Len() > 0 {
			next := s.tasks[0]
			if next.cancelled {
				heap.Pop(&s.tasks)
				continue
			}
			if next.at.After(now) {
				break
			}
			heap.Pop(&s.tasks)
			due = append(due, next)
		}
		wait := time.Duration(-1)
		if s.tasks.Len() > 0 {
			wait = s.tasks[0].at.Sub(now)
		}
		s.mu.Unlock()

		// Each expiration runs on its own goroutine so a slow release of one
		// hold never delays the timers of unrelated holds.
		for _, t := range due {
			go s.onExpire(t.holdID)
		}

		if wait < 0 {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Pending reports how many tasks (cancelled included) are still heaped.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Len()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
