package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"gridd/pkg/types"
)

// Stereotype declares one kind of capacity the local node offers.
type Stereotype struct {
	// Capabilities advertised by the slots, e.g. {"browserName":"chrome"}.
	Capabilities types.Capabilities `json:"capabilities" yaml:"capabilities" toml:"capabilities"`
	// Slots is how many concurrent sessions of this kind to offer.
	Slots int `json:"slots" yaml:"slots" toml:"slots"`
}

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr                string       `json:"addr" yaml:"addr" toml:"addr"`
	NodeURI             string       `json:"node_uri" yaml:"node_uri" toml:"node_uri"`
	MaxSessionCount     int          `json:"max_session_count" yaml:"max_session_count" toml:"max_session_count"`
	Stereotypes         []Stereotype `json:"stereotypes" yaml:"stereotypes" toml:"stereotypes"`
	MaxQueueDepth       int          `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	SessionTimeoutSec   int          `json:"session_timeout_sec" yaml:"session_timeout_sec" toml:"session_timeout_sec"`
	RetryIntervalMS     int          `json:"retry_interval_ms" yaml:"retry_interval_ms" toml:"retry_interval_ms"`
	ReservationGraceSec int          `json:"reservation_grace_sec" yaml:"reservation_grace_sec" toml:"reservation_grace_sec"`
	HeartbeatPeriodSec  int          `json:"heartbeat_period_sec" yaml:"heartbeat_period_sec" toml:"heartbeat_period_sec"`
	NodeTTLSec          int          `json:"node_ttl_sec" yaml:"node_ttl_sec" toml:"node_ttl_sec"`
	EtcdEndpoints       []string     `json:"etcd_endpoints" yaml:"etcd_endpoints" toml:"etcd_endpoints"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
