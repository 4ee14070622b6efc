// Package main implements the land server runtime's process entry point.
//
// It loads configuration, registers the available land types against a
// LandRealm, and serves three HTTP endpoints: a WebSocket upgrade endpoint
// for gameplay traffic, a liveness probe, and a Prometheus metrics
// endpoint.
//
// # Architecture
//
//   - Configuration loading and validation (via pkg/config)
//   - Land type registration against a realm.LandRealm (via pkg/realm)
//   - Connection handshake and message routing (via pkg/router)
//   - Server lifecycle management with graceful shutdown
//   - Signal handling for SIGINT and SIGTERM
//
// # Startup Sequence
//
// 1. Load configuration from environment variables with secure defaults
// 2. Configure logging based on SST_LOG_LEVEL
// 3. Register land types and construct the Router
// 4. Start listening for connections
// 5. Handle shutdown signals gracefully, draining every land's mailbox
//
// # Environment Variables
//
// See pkg/config for the full SST_* variable set (listen address, log
// level, allowed origins, dev mode, timeouts, join rate limiting, recorder
// directory, retry tuning).
//
// # HTTP Endpoints
//
//	GET /ws       WebSocket upgrade; handshake then gameplay traffic
//	GET /healthz  liveness probe (200 if every land type answers healthy)
//	GET /metrics  Prometheus exposition
//
// # Graceful Shutdown
//
// The server handles SIGINT and SIGTERM:
//
// 1. Stop accepting new HTTP connections
// 2. Close the router's background rate-limiter goroutine
// 3. Drain every land's keeper/adapter mailboxes
// 4. Exit cleanly
//
// The shutdown process honors SST_SHUTDOWN_TIMEOUT before forcing exit.
package main
