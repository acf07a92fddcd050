package grid

import (
	"sort"
	"time"

	"gridd/pkg/types"
)

// Status builds the detailed grid view for /status.
func (d *Distributor) Status() types.GridStatus {
	snapshot := d.model.Snapshot()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].NodeID < snapshot[j].NodeID })
	resp := types.GridStatus{
		QueueDepth:     d.queue.Len(),
		MaxQueueDepth:  d.queue.maxDepth,
		UptimeSeconds:  int64(time.Since(d.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	resp.Nodes = make([]types.NodeReport, 0, len(snapshot))
	for _, n := range snapshot {
		if n.Availability == types.Up {
			resp.Ready = true
		}
		report := types.NodeReport{
			NodeID:          n.NodeID,
			URI:             n.URI,
			Availability:    n.Availability,
			MaxSessionCount: n.MaxSessionCount,
			Load:            n.Load(),
		}
		report.Slots = make([]types.SlotReport, 0, len(n.Slots))
		for _, s := range n.Slots {
			sr := types.SlotReport{ID: s.ID.ID, Stereotype: s.Stereotype}
			if s.Session != nil {
				sr.SessionID = s.Session.ID
			}
			if !s.LastStarted.IsZero() {
				sr.LastStarted = s.LastStarted.Unix()
			}
			report.Slots = append(report.Slots, sr)
		}
		resp.Nodes = append(resp.Nodes, report)
	}
	return resp
}
