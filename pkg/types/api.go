package types

// NewSessionRequest is the payload for POST /session.
type NewSessionRequest struct {
	// Requested capabilities; partial-matched against slot stereotypes.
	// example: {"browserName":"chrome"}
	Capabilities Capabilities `json:"capabilities"`
}

// SessionsResponse wraps the list of live sessions returned by GET /session.
type SessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: no such session
	Error string `json:"error" example:"no such session"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// SlotReport summarizes one slot for GET /status.
type SlotReport struct {
	ID         string       `json:"id"`
	Stereotype Capabilities `json:"stereotype"`
	// ID of the hosted session, empty when the slot is free.
	SessionID SessionID `json:"session_id,omitempty"`
	// Last time a session started on this slot (unix seconds, 0 if never).
	LastStarted int64 `json:"last_started_unix,omitempty"`
}

// NodeReport summarizes one registered node for GET /status.
type NodeReport struct {
	NodeID       NodeID       `json:"node_id"`
	URI          string       `json:"uri"`
	Availability Availability `json:"availability"`
	// Upper bound on concurrently active sessions across the node.
	MaxSessionCount int `json:"max_session_count"`
	// Slots currently hosting a session.
	Load  int          `json:"load"`
	Slots []SlotReport `json:"slots"`
}

// GridStatus is returned by GET /status.
type GridStatus struct {
	Nodes []NodeReport `json:"nodes"`
	// Pending requests waiting for capacity.
	QueueDepth int `json:"queue_depth"`
	// Maximum queued requests before new ones are rejected.
	MaxQueueDepth int `json:"max_queue_depth"`
	// True once at least one UP node is registered.
	Ready bool `json:"ready"`
	// Uptime of the distributor in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}
