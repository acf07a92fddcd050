package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"gridd/internal/config"
	"gridd/internal/grid"
	"gridd/internal/httpapi"
	"gridd/internal/node"
	"gridd/internal/sessionmap"
	"gridd/pkg/types"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":4444"
	if v := os.Getenv("GRIDD_ADDR"); v != "" {
		defaultAddr = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :4444")
	configPath := flag.String("config", os.Getenv("GRIDD_CONFIG"), "Path to a yaml/json/toml config file")
	nodeURI := flag.String("node-uri", "", "Public URI of the local node (defaults to http://<addr>)")
	maxSessions := flag.Int("max-sessions", 0, "Max concurrently active sessions on the local node")
	etcdEndpoints := flag.String("etcd-endpoints", os.Getenv("GRIDD_ETCD_ENDPOINTS"), "CSV of etcd endpoints for a shared session map (empty=in-memory)")
	logLevel := flag.String("log-level", envOr("GRIDD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	flag.Parse()

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Str("svc", "gridd").Logger()

	var cfg config.Config
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
	}
	// Flags override file values
	addrSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "addr" {
			addrSet = true
		}
	})
	cfg.Addr = pickAddr(addrSet, *addr, cfg.Addr)
	if *nodeURI != "" {
		cfg.NodeURI = *nodeURI
	}
	if cfg.NodeURI == "" {
		cfg.NodeURI = "http://localhost" + cfg.Addr
	}
	if *maxSessions > 0 {
		cfg.MaxSessionCount = *maxSessions
	}
	if eps := splitCSV(*etcdEndpoints); len(eps) > 0 {
		cfg.EtcdEndpoints = eps
	}
	if len(cfg.Stereotypes) == 0 {
		cfg.Stereotypes = []config.Stereotype{{
			Capabilities: types.Capabilities{types.CapBrowserName: "chrome"},
			Slots:        1,
		}}
	}

	var sessions sessionmap.Map
	if len(cfg.EtcdEndpoints) > 0 {
		store, err := sessionmap.NewEtcd(cfg.EtcdEndpoints)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect session store")
		}
		defer store.Close()
		sessions = store
		logger.Info().Strs("endpoints", cfg.EtcdEndpoints).Msg("using etcd session map")
	} else {
		sessions = sessionmap.NewMemory(logger)
	}

	bus := grid.NewBus()
	dist := grid.NewWithConfig(grid.DistributorConfig{
		Bus:              bus,
		Sessions:         sessions,
		MaxQueueDepth:    cfg.MaxQueueDepth,
		RequestTimeout:   time.Duration(cfg.SessionTimeoutSec) * time.Second,
		RetryInterval:    time.Duration(cfg.RetryIntervalMS) * time.Millisecond,
		ReservationGrace: time.Duration(cfg.ReservationGraceSec) * time.Second,
		NodeTTL:          time.Duration(cfg.NodeTTLSec) * time.Second,
		Logger:           logger,
	})

	local := node.New(node.Config{
		ID:              types.NodeID("local-" + strings.TrimPrefix(cfg.Addr, ":")),
		URI:             cfg.NodeURI,
		MaxSessionCount: cfg.MaxSessionCount,
		HeartbeatPeriod: time.Duration(cfg.HeartbeatPeriodSec) * time.Second,
		Publisher:       bus,
		Logger:          logger,
	})
	for _, st := range cfg.Stereotypes {
		slots := st.Slots
		if slots <= 0 {
			slots = 1
		}
		for i := 0; i < slots; i++ {
			local.AddSlot(st.Capabilities, node.LocalFactory{Stereotype: st.Capabilities})
		}
	}
	dist.Register(local)
	local.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	local.StartHeartbeat(ctx)
	dist.Start(ctx)

	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(ctx)
	mux := httpapi.NewMux(dist)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("node_uri", cfg.NodeURI).Msg("gridd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
}

// pickAddr resolves the listen address: a flag passed on the command line
// wins even when it equals the default, otherwise the config file value,
// otherwise the flag default (which already folds in GRIDD_ADDR).
func pickAddr(explicit bool, flagAddr, cfgAddr string) string {
	if explicit || cfgAddr == "" {
		return flagAddr
	}
	return cfgAddr
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated flag value, trimming whitespace and
// dropping empty items.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
