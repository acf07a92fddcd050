package grid

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gridd/internal/sessionmap"
	"gridd/pkg/types"
)

// Node is the distributor-facing surface of a worker node. The distributor
// proposes a reserved slot; the owning node is the final arbiter and may
// reject the proposal.
type Node interface {
	ID() types.NodeID
	URI() string
	NewSession(ctx context.Context, slot types.SlotID, caps types.Capabilities) (types.Session, error)
	StopSession(ctx context.Context, id types.SessionID) error
	Drain()
}

// Distributor matches incoming session requests to free slots. A request
// first attempts reservation directly against the model snapshot; when no
// candidate succeeds it parks in the queue, and a background loop retries
// queued requests oldest-first as capacity frees up.
type Distributor struct {
	mu    sync.RWMutex
	nodes map[types.NodeID]Node

	model     *Model
	selector  SlotSelector
	queue     *Queue
	sessions  sessionmap.Map
	publisher Publisher

	requestTimeout    time.Duration
	retryInterval     time.Duration
	reservationGrace  time.Duration
	nodeTTL           time.Duration
	maxCreateAttempts int

	log       zerolog.Logger
	startTime time.Time
	kick      chan struct{}
}

func NewWithConfig(cfg DistributorConfig) *Distributor {
	cfg = cfg.withDefaults()
	d := &Distributor{
		nodes:             make(map[types.NodeID]Node),
		model:             cfg.Model,
		selector:          cfg.Selector,
		queue:             NewQueue(cfg.MaxQueueDepth),
		sessions:          cfg.Sessions,
		publisher:         noopPublisher{},
		requestTimeout:    cfg.RequestTimeout,
		retryInterval:     cfg.RetryInterval,
		reservationGrace:  cfg.ReservationGrace,
		nodeTTL:           cfg.NodeTTL,
		maxCreateAttempts: cfg.MaxCreateAttempts,
		log:               cfg.Logger,
		startTime:         time.Now(),
		kick:              make(chan struct{}, 1),
	}
	if cfg.Bus != nil {
		d.publisher = cfg.Bus
		cfg.Bus.Subscribe(d.onEvent)
	}
	return d
}

// Register makes a node available for session creation calls. The node
// announces itself to the model separately via the event bus.
func (d *Distributor) Register(n Node) {
	d.mu.Lock()
	d.nodes[n.ID()] = n
	d.mu.Unlock()
	d.nudge()
}

// Deregister drops the creation handle for a node. In-flight reservations
// against it fail fast once the model catches up.
func (d *Distributor) Deregister(id types.NodeID) {
	d.mu.Lock()
	delete(d.nodes, id)
	d.mu.Unlock()
}

func (d *Distributor) node(id types.NodeID) Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.nodes[id]
}

// onEvent nudges the retry loop whenever capacity may have freed up.
func (d *Distributor) onEvent(e Event) {
	switch e.(type) {
	case SessionStopped, NodeHeartbeat, NodeRegistered:
		d.nudge()
	case NodeRemoved:
		if ev, ok := e.(NodeRemoved); ok {
			d.Deregister(ev.NodeID)
		}
	}
}

func (d *Distributor) nudge() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Start runs the background retry and sweep loops until ctx is cancelled.
func (d *Distributor) Start(ctx context.Context) {
	d.queue.Start(ctx, defaultSweepInterval)
	go func() {
		t := time.NewTicker(d.retryInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			case <-d.kick:
			}
			for _, slot := range d.model.SweepReservations(d.reservationGrace) {
				d.log.Warn().Str("slot", slot.String()).Msg("rolled back unconfirmed slot reservation")
			}
			for _, id := range d.model.MarkStale(d.nodeTTL) {
				d.log.Warn().Str("node", string(id)).Msg("node missed heartbeats, marked DOWN")
			}
			d.drainQueue(ctx)
		}
	}()
}

// NewSession matches the request to a slot, creating the session on the
// chosen node. When no slot is free the request queues until capacity
// appears, the deadline passes, or the caller disconnects.
func (d *Distributor) NewSession(ctx context.Context, caps types.Capabilities) (types.Session, error) {
	sess, err := d.tryCreate(ctx, caps)
	if err == nil {
		return sess, nil
	}
	if !supportedAnywhere(caps, d.model.Snapshot()) {
		d.log.Debug().Interface("capabilities", caps).
			Msg("queueing request no current node can serve")
	}
	req, qerr := d.queue.Enqueue(caps, d.requestTimeout)
	if qerr != nil {
		queueRejections.WithLabelValues("full").Inc()
		return types.Session{}, qerr
	}
	d.log.Info().Str("request", req.ID).Err(err).Msg("session request queued")
	select {
	case out := <-req.Outcome():
		return out.Session, out.Err
	case <-ctx.Done():
		if d.queue.Cancel(req) {
			return types.Session{}, ctx.Err()
		}
		// Lost the race against the retry loop: the request resolved
		// while we were cancelling. Tear down any session it produced.
		out := <-req.Outcome()
		if out.Err == nil {
			d.stopOrphan(out.Session)
		}
		return types.Session{}, ctx.Err()
	}
}

// tryCreate runs one direct attempt: snapshot, select, then reserve and
// create down the candidate list until one node accepts. Per-candidate
// failures are soft; the error returned reflects only the overall attempt.
func (d *Distributor) tryCreate(ctx context.Context, caps types.Capabilities) (types.Session, error) {
	candidates := d.selector.Select(caps, d.model.Snapshot())
	if len(candidates) == 0 {
		return types.Session{}, ErrNoMatchingSlot(caps)
	}
	attempts := 0
	for _, slot := range candidates {
		if attempts >= d.maxCreateAttempts {
			break
		}
		if err := d.model.Reserve(slot); err != nil {
			continue
		}
		n := d.node(slot.NodeID)
		if n == nil {
			d.model.Release(slot)
			continue
		}
		attempts++
		sess, err := n.NewSession(ctx, slot, caps)
		if err != nil {
			d.model.Release(slot)
			sessionCreateFailures.WithLabelValues(failureReason(err)).Inc()
			d.log.Warn().Str("slot", slot.String()).Err(err).Msg("node rejected session creation")
			continue
		}
		// The node's SessionStarted event carries the same update; applying
		// it here too keeps the model right even without a bus wired.
		d.model.SetSession(slot, sess)
		if err := d.sessions.Add(ctx, sess); err != nil {
			d.log.Error().Str("session", string(sess.ID)).Err(err).Msg("session map add failed")
		}
		sessionsCreated.Inc()
		return sess, nil
	}
	return types.Session{}, ErrCapacityExhausted("all candidate slots busy or failed")
}

// drainQueue retries queued requests oldest-first until the queue is empty
// or no node has capacity. Each iteration is isolated: a per-request error
// never stops the loop.
func (d *Distributor) drainQueue(ctx context.Context) {
	for {
		req := d.queue.Poll()
		if req == nil {
			return
		}
		sess, err := d.tryCreate(ctx, req.Capabilities)
		if err != nil {
			// Still no capacity; head of the line keeps its place.
			d.queue.RequeueFront(req)
			return
		}
		if !d.queue.Complete(req, Outcome{Session: sess}) {
			// Request was cancelled or timed out while we created the
			// session; nobody is waiting for it.
			d.stopOrphan(sess)
		}
	}
}

// stopOrphan tears down a session whose requester is gone.
func (d *Distributor) stopOrphan(sess types.Session) {
	d.log.Info().Str("session", string(sess.ID)).Msg("stopping session with no owner")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.StopSession(ctx, sess.ID); err != nil {
		d.log.Warn().Str("session", string(sess.ID)).Err(err).Msg("orphan session teardown failed")
	}
}

// StopSession ends a session: the owning node frees the slot and the
// mapping is removed. Unknown ids fail with the session map's not-found.
func (d *Distributor) StopSession(ctx context.Context, id types.SessionID) error {
	sess, err := d.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if n := d.nodeByURI(sess.NodeURI); n != nil {
		if err := n.StopSession(ctx, id); err != nil {
			d.log.Warn().Str("session", string(id)).Err(err).Msg("node-side session stop failed")
		}
	}
	if err := d.sessions.Remove(ctx, id); err != nil {
		return err
	}
	d.nudge()
	return nil
}

func (d *Distributor) nodeByURI(uri string) Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, n := range d.nodes {
		if n.URI() == uri {
			return n
		}
	}
	return nil
}

// Session looks up a live session by id.
func (d *Distributor) Session(ctx context.Context, id types.SessionID) (types.Session, error) {
	return d.sessions.Get(ctx, id)
}

// Sessions lists all live sessions.
func (d *Distributor) Sessions(ctx context.Context) ([]types.Session, error) {
	return d.sessions.List(ctx)
}

// DrainNode puts a node into graceful drain: no new sessions, existing
// ones run to completion.
func (d *Distributor) DrainNode(id types.NodeID) error {
	n := d.node(id)
	if n == nil {
		return ErrNodeNotFound(id)
	}
	n.Drain()
	return nil
}

// Ready reports whether at least one UP node is registered.
func (d *Distributor) Ready() bool {
	for _, n := range d.model.Snapshot() {
		if n.Availability == types.Up {
			return true
		}
	}
	return false
}

func failureReason(err error) string {
	switch {
	case IsDraining(err):
		return "draining"
	case IsNodeUnreachable(err):
		return "unreachable"
	case IsCapacityExhausted(err):
		return "busy"
	case IsNoMatchingSlot(err):
		return "no_match"
	default:
		return "node_error"
	}
}
