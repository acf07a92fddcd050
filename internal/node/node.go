// Package node holds the live, owning representation of a worker machine:
// its slots, the factories that launch sessions on them, and the heartbeat
// loop that keeps the grid model current.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gridd/internal/grid"
	"gridd/pkg/types"
)

// Config encapsulates construction parameters for a Node.
type Config struct {
	ID  types.NodeID
	URI string
	// MaxSessionCount bounds concurrently active sessions across the
	// node; total slots may exceed it.
	MaxSessionCount int
	// HeartbeatPeriod defaults to 10s.
	HeartbeatPeriod time.Duration
	// Factories resolves the launcher for slots registered without one.
	Factories Registry
	// Publisher receives status and session events; nil drops them.
	Publisher grid.Publisher
	Logger    zerolog.Logger
}

const defaultHeartbeatPeriod = 10 * time.Second

type slot struct {
	id          types.SlotID
	stereotype  types.Capabilities
	factory     SessionFactory
	session     *types.Session
	lastStarted time.Time
	// pending marks a slot handed to a factory whose result is not in yet.
	pending bool
}

// Node owns its slots: the distributor proposes reservations, the node is
// the arbiter of whether a slot actually starts a session.
type Node struct {
	id              types.NodeID
	uri             string
	maxSessionCount int
	heartbeatPeriod time.Duration
	factories       Registry
	publisher       grid.Publisher
	log             zerolog.Logger

	mu       sync.Mutex
	slots    []*slot
	draining bool
	// removed is set once the node has announced NodeRemoved; the
	// heartbeat loop must not resurrect it in the model afterwards.
	removed bool
}

func New(cfg Config) *Node {
	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = defaultHeartbeatPeriod
	}
	if cfg.MaxSessionCount <= 0 {
		cfg.MaxSessionCount = 1
	}
	n := &Node{
		id:              cfg.ID,
		uri:             cfg.URI,
		maxSessionCount: cfg.MaxSessionCount,
		heartbeatPeriod: cfg.HeartbeatPeriod,
		factories:       cfg.Factories,
		publisher:       cfg.Publisher,
		log:             cfg.Logger,
	}
	if n.publisher == nil {
		n.publisher = nopPublisher{}
	}
	return n
}

type nopPublisher struct{}

func (nopPublisher) Publish(grid.Event) {}

func (n *Node) ID() types.NodeID { return n.id }
func (n *Node) URI() string      { return n.uri }

// AddSlot registers one unit of capacity bound to a stereotype. Slots are
// fixed at registration time and get node-scoped sequential ids. A nil
// factory defers to the node's factory registry at creation time.
func (n *Node) AddSlot(stereotype types.Capabilities, f SessionFactory) types.SlotID {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := types.SlotID{NodeID: n.id, ID: fmt.Sprintf("slot-%d", len(n.slots)+1)}
	n.slots = append(n.slots, &slot{id: id, stereotype: stereotype.Clone(), factory: f})
	return id
}

// Register announces the node to the grid with a full snapshot.
func (n *Node) Register() {
	n.publisher.Publish(grid.NodeRegistered{Status: n.Status()})
}

// StartHeartbeat pushes a full status snapshot every period until ctx is
// cancelled or the node removes itself from the grid.
func (n *Node) StartHeartbeat(ctx context.Context) {
	go func() {
		t := time.NewTicker(n.heartbeatPeriod)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if !n.publishHeartbeat() {
					return
				}
			}
		}
	}()
}

// publishHeartbeat pushes a snapshot unless the node already announced its
// removal. Publishing under the lock orders the heartbeat strictly before
// any concurrent NodeRemoved, so a late tick cannot re-insert the node.
func (n *Node) publishHeartbeat() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.removed {
		return false
	}
	n.publisher.Publish(grid.NodeHeartbeat{Status: n.statusLocked()})
	return true
}

// Status returns an immutable snapshot of the node.
func (n *Node) Status() types.NodeStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.statusLocked()
}

func (n *Node) statusLocked() types.NodeStatus {
	avail := types.Up
	if n.draining {
		avail = types.Draining
	}
	status := types.NodeStatus{
		NodeID:          n.id,
		URI:             n.uri,
		MaxSessionCount: n.maxSessionCount,
		Availability:    avail,
		Slots:           make([]types.Slot, 0, len(n.slots)),
	}
	for _, s := range n.slots {
		out := types.Slot{ID: s.id, Stereotype: s.stereotype.Clone(), LastStarted: s.lastStarted}
		if s.session != nil {
			sess := *s.session
			out.Session = &sess
		}
		status.Slots = append(status.Slots, out)
	}
	return status
}

// NewSession starts a session on the proposed slot. The node re-checks
// everything the distributor decided from a snapshot: draining state, the
// max session bound, and that the slot is free and matches.
func (n *Node) NewSession(ctx context.Context, slotID types.SlotID, caps types.Capabilities) (types.Session, error) {
	n.mu.Lock()
	if n.draining {
		n.mu.Unlock()
		return types.Session{}, grid.ErrDraining(n.id)
	}
	if n.activeLocked() >= n.maxSessionCount {
		n.mu.Unlock()
		return types.Session{}, grid.ErrCapacityExhausted("node " + string(n.id) + " at max session count")
	}
	s := n.slotLocked(slotID)
	if s == nil {
		n.mu.Unlock()
		return types.Session{}, grid.ErrReservationConflict(slotID)
	}
	if s.session != nil || s.pending {
		n.mu.Unlock()
		return types.Session{}, grid.ErrReservationConflict(slotID)
	}
	if !caps.Matches(s.stereotype) {
		n.mu.Unlock()
		return types.Session{}, grid.ErrNoMatchingSlot(caps)
	}
	factory := s.factory
	if factory == nil {
		var ok bool
		if factory, ok = n.factories.Lookup(caps); !ok {
			n.mu.Unlock()
			return types.Session{}, grid.ErrNoMatchingSlot(caps)
		}
	}
	// Hold the slot, not the lock, while the factory launches.
	s.pending = true
	n.mu.Unlock()

	sess, err := factory.Create(ctx, caps)
	n.mu.Lock()
	s.pending = false
	if err != nil {
		n.mu.Unlock()
		return types.Session{}, err
	}
	sess.NodeURI = n.uri
	sess.Stereotype = s.stereotype.Clone()
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	s.session = &sess
	s.lastStarted = sess.StartedAt
	n.mu.Unlock()

	n.publisher.Publish(grid.SessionStarted{SlotID: slotID, Session: sess})
	n.log.Info().Str("slot", slotID.String()).Str("session", string(sess.ID)).Msg("session started")
	return sess, nil
}

// StopSession frees the slot hosting the session. Stopping an unknown id
// is a no-op so retries and double-deletes are harmless.
func (n *Node) StopSession(_ context.Context, id types.SessionID) error {
	n.mu.Lock()
	var freed bool
	for _, s := range n.slots {
		if s.session != nil && s.session.ID == id {
			s.session = nil
			freed = true
			break
		}
	}
	drained := n.draining && !n.removed && n.activeLocked() == 0
	if drained {
		n.removed = true
	}
	n.mu.Unlock()

	if freed {
		n.publisher.Publish(grid.SessionStopped{NodeID: n.id, SessionID: id})
		n.log.Info().Str("session", string(id)).Msg("session stopped")
	}
	if drained {
		n.publisher.Publish(grid.NodeRemoved{NodeID: n.id})
		n.log.Info().Msg("drain complete, node removed")
	}
	return nil
}

// Drain stops accepting sessions; once the last session ends the node
// removes itself from the grid.
func (n *Node) Drain() {
	n.mu.Lock()
	already := n.draining
	n.draining = true
	empty := n.activeLocked() == 0
	if !already && empty {
		n.removed = true
	}
	n.mu.Unlock()
	if already {
		return
	}
	n.publisher.Publish(grid.NodeDrained{NodeID: n.id})
	n.log.Info().Msg("node draining")
	if empty {
		n.publisher.Publish(grid.NodeRemoved{NodeID: n.id})
	}
}

func (n *Node) activeLocked() int {
	active := 0
	for _, s := range n.slots {
		if s.session != nil || s.pending {
			active++
		}
	}
	return active
}

func (n *Node) slotLocked(id types.SlotID) *slot {
	for _, s := range n.slots {
		if s.id == id {
			return s
		}
	}
	return nil
}
