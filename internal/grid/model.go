package grid

import (
	"sync"
	"time"

	"gridd/pkg/types"
)

// Model is the distributor's shared view of all registered nodes. It is a
// pure projection of the event stream: heartbeats replace a node's snapshot
// wholesale, and replaying the same event is a no-op beyond the first
// application. Readers get point-in-time copies and must tolerate them
// going stale; the reservation table is what makes slot claims safe.
//
// Known limitation: with no sequence numbers on heartbeats, last-writer-wins
// is by arrival order.
type Model struct {
	mu       sync.RWMutex
	nodes    map[types.NodeID]*nodeEntry
	reserved map[types.SlotID]time.Time
}

type nodeEntry struct {
	status   types.NodeStatus
	lastSeen time.Time
}

// NewModel builds a model; when bus is non-nil the model subscribes and
// projects every event it understands.
func NewModel(bus *Bus) *Model {
	m := &Model{
		nodes:    make(map[types.NodeID]*nodeEntry),
		reserved: make(map[types.SlotID]time.Time),
	}
	if bus != nil {
		bus.Subscribe(m.handle)
	}
	return m
}

func (m *Model) handle(e Event) {
	switch ev := e.(type) {
	case NodeRegistered:
		m.NodeAdded(ev.Status)
	case NodeHeartbeat:
		m.NodeUpdated(ev.Status)
	case NodeDrained:
		m.nodeDrained(ev.NodeID)
	case NodeRemoved:
		m.NodeRemoved(ev.NodeID)
	case SessionStarted:
		m.SetSession(ev.SlotID, ev.Session)
	case SessionStopped:
		m.clearSession(ev.NodeID, ev.SessionID)
	}
}

// NodeAdded inserts or replaces a node snapshot. Idempotent.
func (m *Model) NodeAdded(status types.NodeStatus) {
	m.NodeUpdated(status)
}

// NodeUpdated replaces the node's snapshot wholesale.
func (m *Model) NodeUpdated(status types.NodeStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[status.NodeID] = &nodeEntry{status: status.Clone(), lastSeen: time.Now()}
	nodesRegistered.Set(float64(len(m.nodes)))
}

// NodeRemoved deletes a node; reservations against its slots are dropped so
// in-flight attempts fail fast instead of leaking.
func (m *Model) NodeRemoved(id types.NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, id)
	for slot := range m.reserved {
		if slot.NodeID == id {
			delete(m.reserved, slot)
		}
	}
	nodesRegistered.Set(float64(len(m.nodes)))
}

func (m *Model) nodeDrained(id types.NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.nodes[id]; ok {
		e.status.Availability = types.Draining
	}
}

// Snapshot returns a point-in-time deep copy of every node status. The copy
// does not stay valid across subsequent calls.
func (m *Model) Snapshot() []types.NodeStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.NodeStatus, 0, len(m.nodes))
	for _, e := range m.nodes {
		out = append(out, e.status.Clone())
	}
	return out
}

// Reserve atomically claims a free slot for an in-progress creation
// attempt. It fails with a conflict when the slot is occupied, already
// reserved, or gone, and with unreachable when the node is missing or not
// accepting sessions. Exactly one of K concurrent Reserve calls on the same
// free slot succeeds.
func (m *Model) Reserve(id types.SlotID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.nodes[id.NodeID]
	if !ok {
		return ErrNodeUnreachable(id.NodeID, nil)
	}
	if e.status.Availability != types.Up {
		return ErrDraining(id.NodeID)
	}
	if _, taken := m.reserved[id]; taken {
		reservationConflicts.Inc()
		return ErrReservationConflict(id)
	}
	slot, ok := findSlot(e.status, id)
	if !ok || slot.Session != nil {
		reservationConflicts.Inc()
		return ErrReservationConflict(id)
	}
	// maxSessionCount bounds active sessions plus pending reservations.
	if e.status.Load()+m.reservedOnLocked(id.NodeID) >= e.status.MaxSessionCount {
		reservationConflicts.Inc()
		return ErrReservationConflict(id)
	}
	m.reserved[id] = time.Now()
	return nil
}

// Release rolls back an unconfirmed reservation. Idempotent.
func (m *Model) Release(id types.SlotID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, id)
}

// SetSession confirms a reservation: the slot now hosts the session. A
// session landing on a node the model no longer knows is dropped silently;
// the next heartbeat carries the truth.
func (m *Model) SetSession(id types.SlotID, sess types.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, id)
	e, ok := m.nodes[id.NodeID]
	if !ok {
		return
	}
	for i := range e.status.Slots {
		if e.status.Slots[i].ID == id {
			s := sess
			e.status.Slots[i].Session = &s
			e.status.Slots[i].LastStarted = sess.StartedAt
			return
		}
	}
}

func (m *Model) clearSession(nodeID types.NodeID, sessID types.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.nodes[nodeID]
	if !ok {
		return
	}
	for i := range e.status.Slots {
		s := e.status.Slots[i].Session
		if s != nil && s.ID == sessID {
			e.status.Slots[i].Session = nil
			return
		}
	}
}

// SweepReservations drops reservations older than grace and returns them.
// A reservation never confirmed by a session within the grace period is a
// leaked claim from a crashed creation call.
func (m *Model) SweepReservations(grace time.Duration) []types.SlotID {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-grace)
	var leaked []types.SlotID
	for slot, at := range m.reserved {
		if at.Before(cutoff) {
			delete(m.reserved, slot)
			leaked = append(leaked, slot)
		}
	}
	return leaked
}

// MarkStale flips nodes without a heartbeat for ttl to DOWN and returns
// them. DOWN nodes drop out of candidate sets but keep their entry so a
// late heartbeat revives them.
func (m *Model) MarkStale(ttl time.Duration) []types.NodeID {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	var stale []types.NodeID
	for id, e := range m.nodes {
		if e.status.Availability != types.Down && e.lastSeen.Before(cutoff) {
			e.status.Availability = types.Down
			stale = append(stale, id)
		}
	}
	return stale
}

func (m *Model) reservedOnLocked(id types.NodeID) int {
	n := 0
	for slot := range m.reserved {
		if slot.NodeID == id {
			n++
		}
	}
	return n
}

func findSlot(status types.NodeStatus, id types.SlotID) (types.Slot, bool) {
	for _, s := range status.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return types.Slot{}, false
}
