package grid

import (
	"time"

	"github.com/rs/zerolog"

	"gridd/internal/sessionmap"
)

// Defaults applied when corresponding DistributorConfig fields are unset.
const (
	defaultMaxQueueDepth     = 64
	defaultRequestTimeout    = 5 * time.Minute
	defaultRetryInterval     = 250 * time.Millisecond
	defaultSweepInterval     = time.Second
	defaultReservationGrace  = 30 * time.Second
	defaultNodeTTL           = 30 * time.Second
	defaultMaxCreateAttempts = 3
)

// DistributorConfig encapsulates all tunables for Distributor construction.
type DistributorConfig struct {
	// Bus connects the distributor to node events; nil means events are
	// dropped and the model must be fed directly.
	Bus *Bus
	// Model defaults to a fresh projection over Bus.
	Model *Model
	// Selector defaults to DefaultSlotSelector.
	Selector SlotSelector
	// Sessions defaults to an in-memory map.
	Sessions sessionmap.Map

	// MaxQueueDepth bounds the new-session queue.
	MaxQueueDepth int
	// RequestTimeout is how long a request may wait for capacity.
	RequestTimeout time.Duration
	// RetryInterval paces the background retry loop.
	RetryInterval time.Duration
	// ReservationGrace bounds how long an unconfirmed reservation may
	// strand a slot before the sweep rolls it back.
	ReservationGrace time.Duration
	// NodeTTL is the heartbeat silence after which a node goes DOWN.
	NodeTTL time.Duration
	// MaxCreateAttempts bounds per-request node-side creation retries.
	MaxCreateAttempts int

	Logger zerolog.Logger
}

func (cfg DistributorConfig) withDefaults() DistributorConfig {
	if cfg.Selector == nil {
		cfg.Selector = DefaultSlotSelector{}
	}
	if cfg.Model == nil {
		cfg.Model = NewModel(cfg.Bus)
	}
	if cfg.Sessions == nil {
		cfg.Sessions = sessionmap.NewMemory(cfg.Logger)
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.ReservationGrace <= 0 {
		cfg.ReservationGrace = defaultReservationGrace
	}
	if cfg.NodeTTL <= 0 {
		cfg.NodeTTL = defaultNodeTTL
	}
	if cfg.MaxCreateAttempts <= 0 {
		cfg.MaxCreateAttempts = defaultMaxCreateAttempts
	}
	return cfg
}
