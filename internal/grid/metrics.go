package grid

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gridd",
			Subsystem: "distributor",
			Name:      "sessions_created_total",
			Help:      "Total sessions successfully created",
		},
	)

	sessionCreateFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridd",
			Subsystem: "distributor",
			Name:      "session_create_failures_total",
			Help:      "Session creation attempts that failed at the node",
		},
		[]string{"reason"},
	)

	reservationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gridd",
			Subsystem: "distributor",
			Name:      "reservation_conflicts_total",
			Help:      "Slot reservations lost to a concurrent claim",
		},
	)

	queueRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gridd",
			Subsystem: "queue",
			Name:      "rejections_total",
			Help:      "Requests rejected by the session queue",
		},
		[]string{"reason"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gridd",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Pending session requests parked in the queue",
		},
	)

	nodesRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gridd",
			Subsystem: "model",
			Name:      "nodes_registered",
			Help:      "Nodes currently tracked by the grid model",
		},
	)
)

func init() {
	prometheus.MustRegister(
		sessionsCreated,
		sessionCreateFailures,
		reservationConflicts,
		queueRejections,
		queueDepth,
		nodesRegistered,
	)
}
