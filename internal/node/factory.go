package node

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gridd/pkg/types"
)

// SessionFactory launches a session for a capability request. Concrete
// browser launchers live behind this seam; the grid core only needs the
// match/create pair.
type SessionFactory interface {
	Match(caps types.Capabilities) bool
	Create(ctx context.Context, caps types.Capabilities) (types.Session, error)
}

// Registry is an ordered list of (predicate, factory) pairs. The first
// factory whose Match accepts the request wins.
type Registry []SessionFactory

// Lookup returns the first factory able to serve caps.
func (r Registry) Lookup(caps types.Capabilities) (SessionFactory, bool) {
	for _, f := range r {
		if f.Match(caps) {
			return f, true
		}
	}
	return nil, false
}

// LocalFactory mints session records without launching a process. It is
// the integration seam where a real browser launcher plugs in, and doubles
// as the test factory.
type LocalFactory struct {
	// Stereotype drives Match via the standard partial-match rule.
	Stereotype types.Capabilities
	// Err, when set, makes Create fail; used to exercise the
	// distributor's retry path.
	Err error
	// Delay simulates launch latency.
	Delay time.Duration
}

func (f LocalFactory) Match(caps types.Capabilities) bool {
	return caps.Matches(f.Stereotype)
}

func (f LocalFactory) Create(ctx context.Context, caps types.Capabilities) (types.Session, error) {
	if f.Err != nil {
		return types.Session{}, f.Err
	}
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return types.Session{}, ctx.Err()
		}
	}
	return types.Session{
		ID:           types.SessionID(uuid.NewString()),
		Capabilities: caps.Clone(),
		StartedAt:    time.Now(),
	}, nil
}
