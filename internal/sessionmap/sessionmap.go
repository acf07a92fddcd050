// Package sessionmap maps live session ids to the node serving them. It is
// a flat key-value store with per-key last-write-wins semantics, consulted
// by command routing to forward in-session traffic.
package sessionmap

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"gridd/pkg/types"
)

// Map is the session lookup contract. A Get miss resolves with a not-found
// error: that is the signal routing layers use to detect an expired or
// unknown session, not a bug.
type Map interface {
	Add(ctx context.Context, sess types.Session) error
	Get(ctx context.Context, id types.SessionID) (types.Session, error)
	// Remove is idempotent; removing a non-existent id is not an error.
	Remove(ctx context.Context, id types.SessionID) error
	List(ctx context.Context) ([]types.Session, error)
}

// notFoundError signals a lookup miss for 404 mapping.
type notFoundError struct{ id types.SessionID }

func (e notFoundError) Error() string { return "no such session: " + string(e.id) }

// ErrNotFound constructs a notFoundError.
func ErrNotFound(id types.SessionID) error { return notFoundError{id: id} }

// IsNotFound reports whether err indicates a missing session id.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// Memory is the in-process Map used when a single distributor owns the
// grid.
type Memory struct {
	mu       sync.RWMutex
	sessions map[types.SessionID]types.Session
	log      zerolog.Logger
}

func NewMemory(log zerolog.Logger) *Memory {
	return &Memory{sessions: make(map[types.SessionID]types.Session), log: log}
}

func (m *Memory) Add(_ context.Context, sess types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Overwriting a live mapping is allowed but should not happen in
	// normal operation.
	if _, exists := m.sessions[sess.ID]; exists {
		m.log.Warn().Str("session", string(sess.ID)).Msg("overwriting existing session mapping")
	}
	m.sessions[sess.ID] = sess
	return nil
}

func (m *Memory) Get(_ context.Context, id types.SessionID) (types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return types.Session{}, ErrNotFound(id)
	}
	return sess, nil
}

func (m *Memory) Remove(_ context.Context, id types.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *Memory) List(_ context.Context) ([]types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out, nil
}
