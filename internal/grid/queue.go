package grid

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"gridd/pkg/types"
)

// Outcome resolves a queued session request: either a created session or a
// terminal error.
type Outcome struct {
	Session types.Session
	Err     error
}

// Request is a pending session request parked in the queue.
type Request struct {
	ID           string
	Capabilities types.Capabilities
	EnqueuedAt   time.Time
	Deadline     time.Time

	done      chan Outcome
	completed bool
}

// Outcome returns the channel the request resolves on. It receives exactly
// one value.
func (r *Request) Outcome() <-chan Outcome { return r.done }

// Queue is a bounded FIFO of pending session requests. Entries carry an
// absolute deadline; a background sweep resolves expired entries as
// capacity-exhaustion failures even when no other queue activity occurs.
type Queue struct {
	mu       sync.Mutex
	entries  []*Request
	byID     map[string]*Request
	maxDepth int
}

func NewQueue(maxDepth int) *Queue {
	if maxDepth <= 0 {
		maxDepth = defaultMaxQueueDepth
	}
	return &Queue{byID: make(map[string]*Request), maxDepth: maxDepth}
}

// Enqueue parks a request until it is completed, times out, or is removed.
// Returns an error immediately when the queue is at capacity.
func (q *Queue) Enqueue(caps types.Capabilities, timeout time.Duration) (*Request, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) >= q.maxDepth {
		return nil, ErrCapacityExhausted("session queue full")
	}
	now := time.Now()
	r := &Request{
		ID:           uuid.NewString(),
		Capabilities: caps.Clone(),
		EnqueuedAt:   now,
		Deadline:     now.Add(timeout),
		done:         make(chan Outcome, 1),
	}
	q.entries = append(q.entries, r)
	q.byID[r.ID] = r
	queueDepth.Set(float64(len(q.entries)))
	return r, nil
}

// Poll removes and returns the oldest live request, or nil when the queue
// is empty. Expired entries encountered at the head are resolved as
// timeouts and skipped. No two Poll calls ever return the same live entry.
func (q *Queue) Poll() *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	for len(q.entries) > 0 {
		r := q.entries[0]
		q.entries = q.entries[1:]
		delete(q.byID, r.ID)
		if now.After(r.Deadline) {
			q.resolveLocked(r, Outcome{Err: ErrCapacityExhausted("timed out waiting for a slot")})
			continue
		}
		queueDepth.Set(float64(len(q.entries)))
		return r
	}
	queueDepth.Set(0)
	return nil
}

// RequeueFront puts a polled-but-unsatisfied request back at the head,
// preserving FIFO order. Completed requests are dropped.
func (q *Queue) RequeueFront(r *Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if r.completed {
		return
	}
	q.entries = append([]*Request{r}, q.entries...)
	q.byID[r.ID] = r
	queueDepth.Set(float64(len(q.entries)))
}

// Complete resolves r with out. Reports false when the request was already
// resolved or cancelled, in which case the caller owns any session in out.
func (q *Queue) Complete(r *Request, out Outcome) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if r.completed {
		return false
	}
	q.removeLocked(r.ID)
	q.resolveLocked(r, out)
	return true
}

// Cancel withdraws a request on client disconnect. Reports false when the
// request already resolved; the caller must then drain Outcome().
func (q *Queue) Cancel(r *Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if r.completed {
		return false
	}
	r.completed = true
	q.removeLocked(r.ID)
	return true
}

// Remove withdraws an entry by id, resolving its waiter as cancelled so
// nobody blocks on a request nothing will ever serve. Removing an unknown
// id is a no-op.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if r, ok := q.byID[id]; ok {
		q.removeLocked(id)
		q.resolveLocked(r, Outcome{Err: context.Canceled})
	}
}

// Len is the number of parked requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Start runs the deadline sweep until ctx is cancelled.
func (q *Queue) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				q.sweep(time.Now())
			}
		}
	}()
}

// sweep resolves every expired entry as a timeout failure.
func (q *Queue) sweep(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.entries[:0]
	for _, r := range q.entries {
		if now.After(r.Deadline) {
			delete(q.byID, r.ID)
			q.resolveLocked(r, Outcome{Err: ErrCapacityExhausted("timed out waiting for a slot")})
			continue
		}
		kept = append(kept, r)
	}
	q.entries = kept
	queueDepth.Set(float64(len(q.entries)))
}

func (q *Queue) removeLocked(id string) {
	delete(q.byID, id)
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	queueDepth.Set(float64(len(q.entries)))
}

// resolveLocked marks r completed and delivers out. done is buffered, so
// delivery never blocks even if the waiter already gave up.
func (q *Queue) resolveLocked(r *Request, out Outcome) {
	if r.completed {
		return
	}
	r.completed = true
	r.done <- out
}
