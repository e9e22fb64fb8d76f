// Command server boots a simulation host: it parses the environment
// configuration, assembles the configured transport, synchronizer, and tick
// controller, registers the built-in command handlers, and runs the session
// loop until interrupted.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/config"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/session"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/syncer"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/tick"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/transport"
)

func main() {
	stdLogger := log.New(os.Stdout, "", log.LstdFlags)
	logger := telemetry.WrapLogger(stdLogger)
	metrics := telemetry.NewCounters()

	cfg, err := config.ParseEnv()
	if err != nil {
		stdLogger.Fatalf("configuration: %v", err)
	}
	logger.Printf("starting host: transport=%s sync=%s tick=%s rate=%d players=%d",
		cfg.Transport, cfg.SyncMode, cfg.TickMode, cfg.TickRate, cfg.PlayerCount)

	trans, cleanup, err := buildTransport(cfg, logger, metrics)
	if err != nil {
		stdLogger.Fatalf("transport: %v", err)
	}

	tickMode, err := cfg.ParseTickMode()
	if err != nil {
		stdLogger.Fatalf("configuration: %v", err)
	}
	clock := tick.NewController(tickMode, cfg.TickRate, cfg.PlayerCount)
	gate := buildSynchronizer(cfg, metrics)

	world := newWorld(cfg.PlayerCount)
	registry := proto.NewRegistry()
	registerHandlers(registry, world, logger)

	host := session.NewHost(session.Config{
		CommandRate:  cfg.CommandRate,
		CommandBurst: cfg.CommandBurst,
	}, trans, registry, gate, clock, world, logger, metrics)

	stop := make(chan struct{})
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		close(stop)
	}()

	host.Run(stop, world.step(host))
	if cleanup != nil {
		cleanup()
	}

	for _, key := range metrics.Keys() {
		logger.Printf("counter %s=%d", key, metrics.Load(key))
	}
	logger.Printf("host stopped")
}

// buildTransport assembles the configured variant. The cleanup function, when
// non-nil, releases resources the transport's own Shutdown does not own, such
// as the WebSocket HTTP listener.
func buildTransport(cfg config.Config, logger telemetry.Logger, metrics telemetry.Metrics) (transport.Transport, func(), error) {
	switch cfg.Transport {
	case config.TransportSHM:
		trans, err := newSHMTransport(cfg.SHMName, logger)
		return trans, nil, err
	case config.TransportTCP:
		trans, err := transport.ListenTCP(cfg.Addr, logger, metrics)
		return trans, nil, err
	case config.TransportUDP:
		trans, err := transport.ListenUDP(cfg.UDPAddr, logger, metrics)
		return trans, nil, err
	case config.TransportHybrid:
		reliable, err := transport.ListenTCP(cfg.Addr, logger, metrics)
		if err != nil {
			return nil, nil, err
		}
		lossy, err := transport.ListenUDP(cfg.UDPAddr, logger, metrics)
		if err != nil {
			reliable.Shutdown()
			return nil, nil, err
		}
		return transport.NewHybrid(reliable, lossy), nil, nil
	case config.TransportWS:
		ws := transport.NewWS(logger, metrics)
		return ws, serveWS(cfg.Addr, ws, logger), nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// serveWS mounts the upgrade endpoint and returns a function that closes the
// HTTP listener.
func serveWS(addr string, ws *transport.WS, logger telemetry.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Printf("websocket endpoint listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("websocket endpoint failed: %v", err)
		}
	}()
	return func() {
		if err := srv.Close(); err != nil {
			logger.Printf("websocket endpoint close: %v", err)
		}
	}
}

func buildSynchronizer(cfg config.Config, metrics telemetry.Metrics) syncer.Synchronizer {
	switch cfg.SyncMode {
	case config.SyncLockstep:
		return syncer.NewLockstep(cfg.PlayerCount, metrics)
	case config.SyncTurnBased:
		return syncer.NewTurnBased(cfg.PlayerCount, metrics)
	default:
		return syncer.NewAuthoritative()
	}
}
