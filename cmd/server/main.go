package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/landkeep/pkg/config"
	"github.com/opd-ai/landkeep/pkg/exampleland"
	"github.com/opd-ai/landkeep/pkg/metrics"
	"github.com/opd-ai/landkeep/pkg/patch"
	"github.com/opd-ai/landkeep/pkg/realm"
	"github.com/opd-ai/landkeep/pkg/router"
	"github.com/opd-ai/landkeep/pkg/transport"
	"github.com/opd-ai/landkeep/pkg/wire"
)

func main() {
	cfg := loadAndConfigureSystem()

	mtx := metrics.New()
	rlm := buildRealm(cfg, mtx)
	rt := router.NewRouter(rlm, landTypeConfigs(),
		router.WithJoinRateLimit(cfg.JoinRateLimitPerSecond, cfg.JoinRateLimitBurst),
		router.WithMetrics(mtx),
	)

	srv, listener := initializeServer(cfg, rlm, rt, mtx)
	executeServerLifecycle(cfg, srv, listener, rlm, rt)
}

// buildRealm registers every known land type against its LandManager,
// wiring each manager's optional metrics sink and recorder directory from
// cfg. The resulting LandRealm composes every registered LandManager behind
// one lookup.
func buildRealm(cfg *config.Config, mtx *metrics.Metrics) *realm.LandRealm {
	rlm := realm.NewLandRealm()

	codec := wire.NewCodec(patch.FormatJSONObject)
	lobbyManager := realm.NewLandManager(
		"lobby",
		exampleland.Definition(),
		codec,
		nil,
		transport.KickOld,
		cfg.SyncParallelEncode,
		cfg.IdleEmptyDuration,
	)
	lobbyManager.SetMetrics(mtx)
	if cfg.RecorderDir != "" {
		lobbyManager.SetRecorderDir(cfg.RecorderDir)
	}

	if err := rlm.Register("lobby", lobbyManager); err != nil {
		logrus.WithError(err).Fatal("failed to register lobby land type")
	}
	return rlm
}

// landTypeConfigs returns the Router's per-land-type handshake policy. The
// example lobby land allows a join with no instance id to auto-create a
// fresh lobby instance.
func landTypeConfigs() map[string]router.LandTypeConfig {
	return map[string]router.LandTypeConfig{
		"lobby": {AllowAutoCreateOnJoin: true},
	}
}

// loadAndConfigureSystem loads configuration and sets up logging.
func loadAndConfigureSystem() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	configureLogging(cfg.LogLevel)
	logStartupInfo(cfg)
	return cfg
}

// configureLogging sets up the logging system based on configuration.
func configureLogging(logLevel string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.WithError(err).Warn("invalid log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// logStartupInfo logs server startup information.
func logStartupInfo(cfg *config.Config) {
	logrus.WithFields(logrus.Fields{
		"listenAddr":   cfg.ListenAddr,
		"logLevel":     cfg.LogLevel,
		"devMode":      cfg.EnableDevMode,
		"recorderDir":  cfg.RecorderDir,
		"joinRateMax":  cfg.JoinRateLimitPerSecond,
		"parallelSync": cfg.SyncParallelEncode,
	}).Info("starting land server")
}

// initializeServer creates the HTTP server and network listener. /healthz,
// /metrics, and /ws are the module's three external interfaces.
func initializeServer(cfg *config.Config, rlm *realm.LandRealm, rt *router.Router, mtx *metrics.Metrics) (*http.Server, net.Listener) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealthz(rlm))
	mux.Handle("/metrics", mtx.Handler())
	mux.HandleFunc("/ws", handleWebSocket(rt, cfg))

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logrus.WithError(err).Fatal("failed to start listener")
	}

	return srv, listener
}

// executeServerLifecycle handles the complete server lifecycle including
// startup and shutdown, including tearing down the realm and router on
// exit.
func executeServerLifecycle(cfg *config.Config, srv *http.Server, listener net.Listener, rlm *realm.LandRealm, rt *router.Router) {
	sigChan, errChan := setupShutdownHandling()
	startServerAsync(srv, listener, errChan)
	waitForShutdownSignal(sigChan, errChan)
	performGracefulShutdown(cfg, srv, rlm, rt)
}

// setupShutdownHandling creates channels for graceful shutdown signal handling.
func setupShutdownHandling() (chan os.Signal, chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	errChan := make(chan error, 1)
	return sigChan, errChan
}

// startServerAsync starts the server in a background goroutine.
func startServerAsync(srv *http.Server, listener net.Listener, errChan chan error) {
	go func() {
		logrus.WithField("address", listener.Addr()).Info("server listening")
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server failed: %w", err)
		}
	}()
}

// waitForShutdownSignal waits for either a shutdown signal or server error.
func waitForShutdownSignal(sigChan chan os.Signal, errChan chan error) {
	select {
	case sig := <-sigChan:
		logrus.WithField("signal", sig).Info("received shutdown signal")
	case err := <-errChan:
		logrus.WithError(err).Error("server error")
	}
}

// performGracefulShutdown stops accepting new connections, tears down every
// land's keeper/adapter mailboxes, and releases the router's background
// rate-limiter cleanup goroutine.
func performGracefulShutdown(cfg *config.Config, srv *http.Server, rlm *realm.LandRealm, rt *router.Router) {
	logrus.Info("shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("error during HTTP server shutdown")
	}

	rt.Close()
	rlm.Shutdown()

	logrus.Info("server shutdown completed")
}
