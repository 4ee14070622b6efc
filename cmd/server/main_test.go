package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/landkeep/pkg/config"
	"github.com/opd-ai/landkeep/pkg/metrics"
	"github.com/opd-ai/landkeep/pkg/realm"
	"github.com/opd-ai/landkeep/pkg/router"
)

func clearServerTestEnv() {
	for _, v := range []string{
		"SST_LISTEN_ADDR", "SST_LOG_LEVEL", "SST_ALLOWED_ORIGINS", "SST_ENABLE_DEV_MODE",
		"SST_REQUEST_TIMEOUT", "SST_SHUTDOWN_TIMEOUT", "SST_SYNC_PARALLEL_ENCODE",
		"SST_IDLE_EMPTY_SECONDS", "SST_JOIN_RATE_PER_SECOND", "SST_JOIN_RATE_BURST",
		"SST_RECORDER_DIR",
	} {
		os.Unsetenv(v)
	}
}

func TestConfigureLogging(t *testing.T) {
	tests := []struct {
		name          string
		logLevel      string
		expectedLevel logrus.Level
	}{
		{name: "debug level", logLevel: "debug", expectedLevel: logrus.DebugLevel},
		{name: "info level", logLevel: "info", expectedLevel: logrus.InfoLevel},
		{name: "warn level", logLevel: "warn", expectedLevel: logrus.WarnLevel},
		{name: "error level", logLevel: "error", expectedLevel: logrus.ErrorLevel},
		{name: "invalid level falls back to info", logLevel: "invalid", expectedLevel: logrus.InfoLevel},
		{name: "empty level falls back to info", logLevel: "", expectedLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logrus.SetOutput(io.Discard)
			defer logrus.SetOutput(os.Stderr)

			configureLogging(tt.logLevel)
			assert.Equal(t, tt.expectedLevel, logrus.GetLevel())
		})
	}
}

func TestLogStartupInfo(t *testing.T) {
	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	cfg := &config.Config{ListenAddr: ":9090", LogLevel: "debug", EnableDevMode: true}
	logStartupInfo(cfg)

	assert.Contains(t, buf.String(), ":9090")
	assert.Contains(t, buf.String(), "starting land server")
}

func TestLoadAndConfigureSystem(t *testing.T) {
	clearServerTestEnv()
	defer clearServerTestEnv()

	cfg := loadAndConfigureSystem()
	require.NotNil(t, cfg)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestBuildRealmRegistersLobby(t *testing.T) {
	clearServerTestEnv()
	defer clearServerTestEnv()

	cfg, err := config.Load()
	require.NoError(t, err)

	mtx := metrics.New()
	rlm := buildRealm(cfg, mtx)

	_, ok := rlm.Server("lobby")
	assert.True(t, ok)
}

func TestLandTypeConfigsAllowsAutoCreateForLobby(t *testing.T) {
	cfgs := landTypeConfigs()
	lobby, ok := cfgs["lobby"]
	require.True(t, ok)
	assert.True(t, lobby.AllowAutoCreateOnJoin)
}

func TestInitializeServerWithValidConfig(t *testing.T) {
	clearServerTestEnv()
	defer clearServerTestEnv()
	os.Setenv("SST_LISTEN_ADDR", "127.0.0.1:0")
	cfg, err := config.Load()
	require.NoError(t, err)

	mtx := metrics.New()
	rlm := buildRealm(cfg, mtx)
	rt := router.NewRouter(rlm, landTypeConfigs())

	srv, listener := initializeServer(cfg, rlm, rt, mtx)
	require.NotNil(t, srv)
	require.NotNil(t, listener)
	defer listener.Close()

	assert.NotEmpty(t, listener.Addr().String())
}

func TestSetupShutdownHandling(t *testing.T) {
	sigChan, errChan := setupShutdownHandling()
	require.NotNil(t, sigChan)
	require.NotNil(t, errChan)
	signal.Stop(sigChan)
}

func TestStartServerAsync(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	srv := &http.Server{Handler: http.NewServeMux()}
	errChan := make(chan error, 1)
	startServerAsync(srv, listener, errChan)

	time.Sleep(50 * time.Millisecond)
	select {
	case err := <-errChan:
		t.Fatalf("unexpected server error: %v", err)
	default:
	}

	_ = srv.Close()
}

func TestWaitForShutdownSignal_Signal(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	errChan := make(chan error, 1)

	sigChan <- syscall.SIGTERM

	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(os.Stderr)

	waitForShutdownSignal(sigChan, errChan)
	assert.Contains(t, buf.String(), "received shutdown signal")
}

func TestWaitForShutdownSignal_Error(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	errChan := make(chan error, 1)

	errChan <- context.DeadlineExceeded

	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(os.Stderr)

	waitForShutdownSignal(sigChan, errChan)
	assert.Contains(t, buf.String(), "server error")
}

func TestPerformGracefulShutdown(t *testing.T) {
	clearServerTestEnv()
	defer clearServerTestEnv()
	cfg, err := config.Load()
	require.NoError(t, err)

	mtx := metrics.New()
	rlm := buildRealm(cfg, mtx)
	rt := router.NewRouter(rlm, landTypeConfigs())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.NewServeMux()}
	go srv.Serve(listener)
	time.Sleep(10 * time.Millisecond)

	performGracefulShutdown(cfg, srv, rlm, rt)
}
