package grid

import "gridd/pkg/types"

// Event is a grid lifecycle event. The model is a pure projection of the
// event stream and can be rebuilt by replaying it.
type Event interface {
	// Name returns a stable identifier for logging and tests.
	Name() string
}

// NodeRegistered announces a new node joining the grid with a full snapshot.
type NodeRegistered struct {
	Status types.NodeStatus
}

func (NodeRegistered) Name() string { return "node_registered" }

// NodeHeartbeat carries a full status snapshot; it supersedes the previous
// one wholesale, never a partial merge.
type NodeHeartbeat struct {
	Status types.NodeStatus
}

func (NodeHeartbeat) Name() string { return "node_heartbeat" }

// NodeDrained marks a node as draining: existing sessions run to
// completion, no new sessions are placed on it.
type NodeDrained struct {
	NodeID types.NodeID
}

func (NodeDrained) Name() string { return "node_drained" }

// NodeRemoved removes a node and its slots from the grid.
type NodeRemoved struct {
	NodeID types.NodeID
}

func (NodeRemoved) Name() string { return "node_removed" }

// SessionStarted records a session now occupying a slot.
type SessionStarted struct {
	SlotID  types.SlotID
	Session types.Session
}

func (SessionStarted) Name() string { return "session_started" }

// SessionStopped records a slot being freed.
type SessionStopped struct {
	NodeID    types.NodeID
	SessionID types.SessionID
}

func (SessionStopped) Name() string { return "session_stopped" }

// Publisher receives grid events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
