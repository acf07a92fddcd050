package types

import "time"

// NodeID uniquely identifies a node for its registered lifetime.
type NodeID string

// SessionID identifies a live session.
type SessionID string

// SlotID is a node-scoped slot identifier; the pair is globally unique.
type SlotID struct {
	NodeID NodeID `json:"node_id"`
	ID     string `json:"id"`
}

func (s SlotID) String() string { return string(s.NodeID) + "/" + s.ID }

// Availability is the reachability state a node reports.
type Availability string

const (
	Up       Availability = "UP"
	Draining Availability = "DRAINING"
	Down     Availability = "DOWN"
)

// Session is a running browser session hosted by a slot.
type Session struct {
	// Stable identifier for the session.
	ID SessionID `json:"id"`
	// URI of the node serving the session; command routing targets this.
	NodeURI string `json:"node_uri"`
	// Capabilities the client originally requested.
	Capabilities Capabilities `json:"capabilities"`
	// Stereotype of the slot that matched the request.
	Stereotype Capabilities `json:"stereotype"`
	// Wall-clock start time.
	StartedAt time.Time `json:"started_at"`
}

// Slot is one unit of concurrent session capacity on a node, bound to a
// fixed stereotype. A slot hosts at most one session at a time.
type Slot struct {
	ID          SlotID       `json:"id"`
	Stereotype  Capabilities `json:"stereotype"`
	LastStarted time.Time    `json:"last_started"`
	Session     *Session     `json:"session,omitempty"`
}

// Clone returns a deep copy of the slot.
func (s Slot) Clone() Slot {
	out := s
	out.Stereotype = s.Stereotype.Clone()
	if s.Session != nil {
		sess := *s.Session
		sess.Capabilities = s.Session.Capabilities.Clone()
		sess.Stereotype = s.Session.Stereotype.Clone()
		out.Session = &sess
	}
	return out
}

// NodeStatus is an immutable snapshot of a node's identity, reachability and
// slot inventory. Heartbeats supersede the previous snapshot wholesale.
type NodeStatus struct {
	NodeID          NodeID       `json:"node_id"`
	URI             string       `json:"uri"`
	MaxSessionCount int          `json:"max_session_count"`
	Slots           []Slot       `json:"slots"`
	Availability    Availability `json:"availability"`
}

// Load is the number of slots currently hosting a session.
func (n NodeStatus) Load() int {
	load := 0
	for _, s := range n.Slots {
		if s.Session != nil {
			load++
		}
	}
	return load
}

// Clone returns a deep copy of the status snapshot.
func (n NodeStatus) Clone() NodeStatus {
	out := n
	out.Slots = make([]Slot, len(n.Slots))
	for i, s := range n.Slots {
		out.Slots[i] = s.Clone()
	}
	return out
}
