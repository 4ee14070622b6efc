package main

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/landkeep/pkg/config"
	"github.com/opd-ai/landkeep/pkg/land"
	"github.com/opd-ai/landkeep/pkg/realm"
	"github.com/opd-ai/landkeep/pkg/router"
)

const clientIDHeader = "X-Client-Id"

// upgrader builds an origin-checked websocket.Upgrader, checking against
// one allowed-origins list read from config rather than re-reading an env
// var on every request.
func upgrader(cfg *config.Config) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			allowed := cfg.OriginAllowed(origin)
			if !allowed {
				logrus.WithFields(logrus.Fields{
					"origin": origin,
				}).Warn("websocket connection rejected: origin not allowed")
			}
			return allowed
		},
	}
}

// clientIDFor resolves the stable ClientID for a connection: the
// X-Client-Id header when the caller supplies one (so a reconnecting client
// keeps its join-rate-limit bucket and duplicate-login identity), otherwise
// a freshly minted one for this connection only.
func clientIDFor(r *http.Request) land.ClientID {
	if v := strings.TrimSpace(r.Header.Get(clientIDHeader)); v != "" {
		return land.ClientID(v)
	}
	return land.ClientID(uuid.NewString())
}

// handleWebSocket upgrades the HTTP connection and pumps inbound frames into
// the Router for the lifetime of the socket. The Router owns the connection
// from handshake onward and forwards bound traffic to its land.
func handleWebSocket(rt *router.Router, cfg *config.Config) http.HandlerFunc {
	up := upgrader(cfg)
	return func(w http.ResponseWriter, r *http.Request) {
		logger := logrus.WithField("function", "handleWebSocket")

		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Error("websocket upgrade failed")
			return
		}
		defer conn.Close()

		sessionID := land.SessionID(uuid.NewString())
		clientID := clientIDFor(r)
		wsConn := newWSConnection(conn)

		rt.OnConnect(sessionID, clientID, nil, wsConn)
		logger.WithFields(logrus.Fields{
			"sessionID": sessionID,
			"clientID":  clientID,
		}).Info("websocket connection established")

		ctx := r.Context()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if err := rt.OnMessage(ctx, sessionID, data); err != nil {
				logger.WithError(err).WithField("sessionID", sessionID).Debug("message handling failed")
			}
		}

		if err := rt.OnDisconnect(ctx, sessionID); err != nil {
			logger.WithError(err).WithField("sessionID", sessionID).Debug("disconnect handling failed")
		}
	}
}

// handleHealthz reports 200 while every registered land type answers its
// HealthCheck, 503 otherwise.
func handleHealthz(rlm *realm.LandRealm) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := rlm.HealthCheck(r.Context()); err != nil {
			logrus.WithError(err).Warn("health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
