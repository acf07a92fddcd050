// Package grid implements the distribution core: tracking worker nodes,
// matching session requests to free slots, and routing creation calls to
// the chosen node. It is structured into small files by concern:
//
//   - distributor.go: Distributor orchestration, retry loop, stop/drain.
//   - config.go: DistributorConfig and package defaults.
//   - model.go: grid model projection and the slot reservation table.
//   - selector.go: slot selection (reach buckets, then ascending load).
//   - queue.go: bounded FIFO new-session queue with deadline sweep.
//   - events.go: typed event variants and the Publisher contract.
//   - eventbus.go: in-process pub/sub bus.
//   - eventpub_memory.go: event recorder for tests.
//   - errors.go: error taxonomy and Is* helpers.
//   - metrics.go: prometheus collectors.
//   - status_report.go: Status() projection for the HTTP layer.
//
// Consistency model: the model is read-mostly from the distributor's side
// and write-mostly from the heartbeat side. Selections run on stale
// snapshots on purpose; the reservation compare-and-set is what makes a
// claim exclusive, not locking the whole model.
package grid
