package grid

import (
	"fmt"

	"gridd/pkg/types"
)

// noMatchingSlotError signals that no node currently offers the requested
// capabilities. Recoverable by queuing.
type noMatchingSlotError struct{ caps types.Capabilities }

func (e noMatchingSlotError) Error() string {
	return fmt.Sprintf("no matching slot for capabilities %v", map[string]any(e.caps))
}

// ErrNoMatchingSlot constructs a noMatchingSlotError.
func ErrNoMatchingSlot(caps types.Capabilities) error { return noMatchingSlotError{caps: caps} }

// IsNoMatchingSlot reports whether err indicates no node offers the caps.
func IsNoMatchingSlot(err error) bool {
	_, ok := err.(noMatchingSlotError)
	return ok
}

// capacityExhaustedError signals queue overflow or queue-wait timeout; the
// HTTP layer maps it to 429.
type capacityExhaustedError struct{ reason string }

func (e capacityExhaustedError) Error() string { return "capacity exhausted: " + e.reason }

func ErrCapacityExhausted(reason string) error { return capacityExhaustedError{reason: reason} }

// IsCapacityExhausted reports whether err indicates backpressure.
func IsCapacityExhausted(err error) bool {
	_, ok := err.(capacityExhaustedError)
	return ok
}

// reservationConflictError signals a slot claimed by a concurrent request
// between selection and reservation. Always retried, never surfaced.
type reservationConflictError struct{ slot types.SlotID }

func (e reservationConflictError) Error() string {
	return "slot already reserved or occupied: " + e.slot.String()
}

func ErrReservationConflict(slot types.SlotID) error { return reservationConflictError{slot: slot} }

func IsReservationConflict(err error) bool {
	_, ok := err.(reservationConflictError)
	return ok
}

// nodeUnreachableError signals that a node is missing from the model or a
// call to it failed. Soft failure for selection purposes.
type nodeUnreachableError struct {
	node  types.NodeID
	cause error
}

func (e nodeUnreachableError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("node %s unreachable: %v", e.node, e.cause)
	}
	return fmt.Sprintf("node %s unreachable", e.node)
}

func (e nodeUnreachableError) Unwrap() error { return e.cause }

func ErrNodeUnreachable(node types.NodeID, cause error) error {
	return nodeUnreachableError{node: node, cause: cause}
}

func IsNodeUnreachable(err error) bool {
	_, ok := err.(nodeUnreachableError)
	return ok
}

// drainingError signals a node refusing new sessions while draining.
type drainingError struct{ node types.NodeID }

func (e drainingError) Error() string { return "node draining: " + string(e.node) }

func ErrDraining(node types.NodeID) error { return drainingError{node: node} }

func IsDraining(err error) bool {
	_, ok := err.(drainingError)
	return ok
}

// nodeNotFoundError signals an unknown node id on an admin operation.
type nodeNotFoundError struct{ node types.NodeID }

func (e nodeNotFoundError) Error() string { return "node not found: " + string(e.node) }

func ErrNodeNotFound(node types.NodeID) error { return nodeNotFoundError{node: node} }

func IsNodeNotFound(err error) bool {
	_, ok := err.(nodeNotFoundError)
	return ok
}
