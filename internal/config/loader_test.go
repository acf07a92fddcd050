package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "gridd.yaml", `
addr: ":4444"
node_uri: "http://localhost:4444"
max_session_count: 4
max_queue_depth: 32
session_timeout_sec: 120
stereotypes:
  - capabilities:
      browserName: chrome
    slots: 3
  - capabilities:
      browserName: firefox
      platformName: linux
    slots: 1
etcd_endpoints:
  - "127.0.0.1:2379"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":4444" || cfg.MaxSessionCount != 4 || cfg.MaxQueueDepth != 32 {
		t.Fatalf("got %+v", cfg)
	}
	if len(cfg.Stereotypes) != 2 {
		t.Fatalf("stereotypes: %+v", cfg.Stereotypes)
	}
	if cfg.Stereotypes[0].Capabilities["browserName"] != "chrome" || cfg.Stereotypes[0].Slots != 3 {
		t.Fatalf("first stereotype: %+v", cfg.Stereotypes[0])
	}
	if cfg.Stereotypes[1].Capabilities["platformName"] != "linux" {
		t.Fatalf("second stereotype: %+v", cfg.Stereotypes[1])
	}
	if len(cfg.EtcdEndpoints) != 1 || cfg.EtcdEndpoints[0] != "127.0.0.1:2379" {
		t.Fatalf("etcd endpoints: %v", cfg.EtcdEndpoints)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "gridd.json", `{
  "addr": ":5555",
  "retry_interval_ms": 100,
  "stereotypes": [{"capabilities": {"browserName": "chrome"}, "slots": 2}]
}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":5555" || cfg.RetryIntervalMS != 100 {
		t.Fatalf("got %+v", cfg)
	}
	if len(cfg.Stereotypes) != 1 || cfg.Stereotypes[0].Slots != 2 {
		t.Fatalf("stereotypes: %+v", cfg.Stereotypes)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "gridd.toml", `
addr = ":6666"
node_ttl_sec = 60

[[stereotypes]]
slots = 1
[stereotypes.capabilities]
browserName = "firefox"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":6666" || cfg.NodeTTLSec != 60 {
		t.Fatalf("got %+v", cfg)
	}
	if len(cfg.Stereotypes) != 1 || cfg.Stereotypes[0].Capabilities["browserName"] != "firefox" {
		t.Fatalf("stereotypes: %+v", cfg.Stereotypes)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("empty path should fail")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file should fail")
	}
	bad := writeFile(t, "gridd.conf", "addr = :4444")
	if _, err := Load(bad); err == nil {
		t.Fatalf("unsupported extension should fail")
	}
	broken := writeFile(t, "broken.json", "{not json")
	if _, err := Load(broken); err == nil {
		t.Fatalf("malformed json should fail")
	}
}
