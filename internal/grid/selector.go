package grid

import (
	"fmt"
	"sort"

	"gridd/pkg/types"
)

// SlotSelector ranks free slots able to serve a capability request. The
// result is preference-ordered, most-preferred first; empty when nothing
// matches. Selection works on snapshots, so a returned slot may already be
// taken by the time a reservation is attempted; callers handle that race.
type SlotSelector interface {
	Select(requested types.Capabilities, nodes []types.NodeStatus) []types.SlotID
}

// DefaultSlotSelector prefers narrowly-capable nodes over general-purpose
// ones, then spreads load evenly:
//
//  1. Only UP nodes with at least one free slot whose stereotype matches
//     the request are candidates.
//  2. Candidates are ordered by "reach" ascending: the number of distinct
//     browser/platform values across all of the node's stereotypes. A node
//     that can only serve the requested browser goes before one that can
//     serve many, keeping general-purpose capacity free for requests that
//     need it.
//  3. Equal reach orders by current load ascending, then by node id so the
//     result is deterministic per call.
type DefaultSlotSelector struct{}

type candidate struct {
	nodeID types.NodeID
	reach  int
	load   int
	free   []types.SlotID
}

func (DefaultSlotSelector) Select(requested types.Capabilities, nodes []types.NodeStatus) []types.SlotID {
	candidates := make([]candidate, 0, len(nodes))
	for _, n := range nodes {
		if n.Availability != types.Up {
			continue
		}
		free := freeMatchingSlots(requested, n)
		if len(free) == 0 {
			continue
		}
		candidates = append(candidates, candidate{
			nodeID: n.NodeID,
			reach:  reach(n),
			load:   n.Load(),
			free:   free,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.reach != b.reach {
			return a.reach < b.reach
		}
		if a.load != b.load {
			return a.load < b.load
		}
		return a.nodeID < b.nodeID
	})
	var out []types.SlotID
	for _, c := range candidates {
		out = append(out, c.free...)
	}
	return out
}

// freeMatchingSlots returns the ids of free slots on n whose stereotype
// satisfies the request, ordered by slot id for determinism.
func freeMatchingSlots(requested types.Capabilities, n types.NodeStatus) []types.SlotID {
	var out []types.SlotID
	for _, s := range n.Slots {
		if s.Session != nil {
			continue
		}
		if !requested.Matches(s.Stereotype) {
			continue
		}
		out = append(out, s.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// reach counts the distinct browser/platform values a node's stereotypes
// can serve, regardless of occupancy.
func reach(n types.NodeStatus) int {
	seen := make(map[string]struct{})
	for _, s := range n.Slots {
		for _, key := range []string{types.CapBrowserName, types.CapPlatformName} {
			if v, ok := s.Stereotype[key]; ok && v != nil {
				seen[key+"="+fmt.Sprint(v)] = struct{}{}
			}
		}
	}
	return len(seen)
}

// supportedAnywhere reports whether any non-DOWN node advertises a
// stereotype matching the request, ignoring occupancy. Used to decide
// whether queuing a request can ever pay off with the current fleet.
func supportedAnywhere(requested types.Capabilities, nodes []types.NodeStatus) bool {
	for _, n := range nodes {
		if n.Availability == types.Down {
			continue
		}
		for _, s := range n.Slots {
			if requested.Matches(s.Stereotype) {
				return true
			}
		}
	}
	return false
}
