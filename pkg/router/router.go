// Package router implements the land router: the single connection-facing
// entry point that owns a fresh connection through its handshake, resolves
// which land it belongs to, and forwards post-bind traffic to that land's
// TransportAdapter via the realm. It is the only component in this module
// that speaks directly to a raw Connection before a land has claimed it,
// generalized from one hardcoded game registration to a realm of many land
// types.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/landkeep/pkg/land"
	"github.com/opd-ai/landkeep/pkg/metrics"
	"github.com/opd-ai/landkeep/pkg/realm"
	"github.com/opd-ai/landkeep/pkg/transport"
	"github.com/opd-ai/landkeep/pkg/wire"
)

// LandTypeConfig is the Router's per-land-type handshake policy, keyed by
// landType in the registry passed to NewRouter.
type LandTypeConfig struct {
	// AllowAutoCreateOnJoin permits a join with no landInstanceId (or one
	// naming an instance that does not yet exist) to create a fresh
	// instance. When false, only joins naming an existing instance succeed.
	AllowAutoCreateOnJoin bool
}

// Router is the single instance shared by every connection's handshake and
// post-bind message pump. It holds no per-land state itself; all of that
// lives behind realm.LandServer.
type Router struct {
	realm *realm.LandRealm

	mu        sync.RWMutex
	landTypes map[string]LandTypeConfig
	sessions  map[land.SessionID]*sessionState

	joinLimiter *joinRateLimiter
	metrics     *metrics.Metrics

	logger *logrus.Entry
}

// Option configures optional Router behavior not carried by its required
// constructor arguments.
type Option func(*Router)

// WithJoinRateLimit throttles join attempts per ClientID to requestsPerSec
// sustained with the given burst. A requestsPerSec of 0 (the default)
// disables limiting.
func WithJoinRateLimit(requestsPerSec float64, burst int) Option {
	return func(rt *Router) {
		rt.joinLimiter = newJoinRateLimiter(requestsPerSec, burst, time.Minute)
	}
}

// WithMetrics attaches a Metrics instance; Router records connection and
// join-outcome counters against it. Omitting this option disables recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(rt *Router) { rt.metrics = m }
}

// NewRouter constructs a Router over an already-populated LandRealm.
// landTypes configures auto-create policy per registered land type; a land
// type absent from this map behaves as AllowAutoCreateOnJoin=false.
func NewRouter(r *realm.LandRealm, landTypes map[string]LandTypeConfig, opts ...Option) *Router {
	cfg := make(map[string]LandTypeConfig, len(landTypes))
	for k, v := range landTypes {
		cfg[k] = v
	}
	rt := &Router{
		realm:       r,
		landTypes:   cfg,
		sessions:    make(map[land.SessionID]*sessionState),
		joinLimiter: newJoinRateLimiter(0, 0, time.Minute),
		logger:      logrus.WithField("function", "Router"),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Close releases background resources (the join rate limiter's cleanup
// goroutine). Safe to call once during process shutdown.
func (rt *Router) Close() {
	if rt.joinLimiter != nil {
		rt.joinLimiter.close()
	}
}

// OnConnect registers a freshly accepted connection in the handshake phase.
func (rt *Router) OnConnect(sessionID land.SessionID, clientID land.ClientID, auth *land.AuthenticatedInfo, conn transport.Connection) {
	rt.mu.Lock()
	rt.sessions[sessionID] = newSessionState(conn, clientID, auth)
	rt.mu.Unlock()
	rt.logger.WithField("sessionID", sessionID).Debug("connection registered in handshake phase")
	if rt.metrics != nil {
		rt.metrics.RecordConnectionEvent("connected")
	}
}

// OnDisconnect clears sessionID's phase and, if it was bound, forwards to
// that land's adapter.
func (rt *Router) OnDisconnect(ctx context.Context, sessionID land.SessionID) error {
	rt.mu.Lock()
	st, ok := rt.sessions[sessionID]
	delete(rt.sessions, sessionID)
	rt.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}
	if rt.metrics != nil {
		rt.metrics.RecordConnectionEvent("disconnected")
	}

	phase, landID, _, _, _ := st.snapshot()
	if phase != PhaseBound {
		return nil
	}
	server, ok := rt.realm.Server(landID.LandType)
	if !ok {
		return nil
	}
	return server.OnDisconnect(ctx, landID, sessionID)
}

// OnMessage dispatches one inbound byte sequence from sessionID. In
// PhaseHandshake it must decode as a JSON Join regardless of the target
// land's configured wire format; once PhaseBound it is forwarded verbatim
// to the bound land's adapter.
func (rt *Router) OnMessage(ctx context.Context, sessionID land.SessionID, data []byte) error {
	rt.mu.RLock()
	st, ok := rt.sessions[sessionID]
	rt.mu.RUnlock()
	if !ok {
		return ErrUnknownSession
	}

	phase, landID, conn, clientID, auth := st.snapshot()
	if phase == PhaseBound {
		server, ok := rt.realm.Server(landID.LandType)
		if !ok {
			return fmt.Errorf("router: land type %q no longer registered", landID.LandType)
		}
		return server.OnMessage(ctx, landID, sessionID, data)
	}

	joinReq, err := wire.DecodeJoinRequest(data)
	if err != nil {
		rt.rejectHandshake(ctx, conn, "", ReasonHandshakeRequired)
		return nil
	}
	return rt.handleJoin(ctx, sessionID, clientID, auth, st, conn, joinReq)
}

func (rt *Router) handleJoin(ctx context.Context, sessionID land.SessionID, clientID land.ClientID, auth *land.AuthenticatedInfo, st *sessionState, conn transport.Connection, joinReq wire.JoinRequest) error {
	if !rt.joinLimiter.allow(clientID) {
		if rt.metrics != nil {
			rt.metrics.RecordJoin(joinReq.LandType, "rate_limited")
		}
		rt.rejectHandshake(ctx, conn, joinReq.RequestID, ReasonRateLimited)
		return nil
	}

	server, ok := rt.realm.Server(joinReq.LandType)
	if !ok {
		if rt.metrics != nil {
			rt.metrics.RecordJoin(joinReq.LandType, "unknown_land_type")
		}
		rt.rejectHandshake(ctx, conn, joinReq.RequestID, ReasonUnknownLandType)
		return nil
	}

	landID, rejectReason, err := rt.resolveLandID(server, joinReq)
	if err != nil {
		return fmt.Errorf("router: resolve land id: %w", err)
	}
	if rejectReason != "" {
		if rt.metrics != nil {
			rt.metrics.RecordJoin(joinReq.LandType, rejectReason)
		}
		rt.rejectHandshake(ctx, conn, joinReq.RequestID, rejectReason)
		return nil
	}

	session := land.ResolveSession(sessionID, clientID, joinPlayerID(joinReq), joinDeviceID(joinReq), joinReq.Metadata, auth)

	result, err := server.PerformJoin(ctx, landID, session, clientID, sessionID, conn)
	if err != nil {
		reason := "join_denied"
		if denied, ok := err.(*transport.JoinDeniedError); ok {
			reason = denied.Reason
		}
		if rt.metrics != nil {
			rt.metrics.RecordJoin(joinReq.LandType, reason)
		}
		rt.rejectHandshake(ctx, conn, joinReq.RequestID, reason)
		return nil
	}
	if rt.metrics != nil {
		rt.metrics.RecordJoin(joinReq.LandType, "success")
	}

	st.bind(landID)

	slot := result.PlayerSlot
	resp := wire.JoinResponse{
		RequestID:  joinReq.RequestID,
		Success:    true,
		PlayerID:   string(result.PlayerID),
		LandID:     landID.String(),
		PlayerSlot: &slot,
	}
	respBytes, err := server.Codec().EncodeJoinResponse(resp)
	if err != nil {
		return fmt.Errorf("router: encode join response: %w", err)
	}
	if err := conn.Send(ctx, transport.FrameMessage(respBytes)); err != nil {
		rt.logger.WithError(err).WithField("sessionID", sessionID).Warn("failed to deliver join response")
		return nil
	}

	if err := server.SyncNow(ctx, landID); err != nil {
		rt.logger.WithError(err).WithField("landID", landID.String()).Warn("initial sync after join failed")
	}
	return nil
}

// resolveLandID resolves which land instance a join targets, applying the
// land type's auto-create policy. A non-empty rejectReason means the join
// must be refused with that reason and no land is touched.
func (rt *Router) resolveLandID(server realm.LandServer, joinReq wire.JoinRequest) (land.LandID, string, error) {
	cfg := rt.configFor(joinReq.LandType)

	if joinReq.LandInstanceID != nil && *joinReq.LandInstanceID != "" {
		landID := land.LandID{LandType: joinReq.LandType, InstanceID: *joinReq.LandInstanceID}
		if server.Exists(landID) {
			return landID, "", nil
		}
		if !cfg.AllowAutoCreateOnJoin {
			return land.LandID{}, ReasonInstanceNotFound, nil
		}
		return server.GetOrCreateLand(*joinReq.LandInstanceID), "", nil
	}

	if !cfg.AllowAutoCreateOnJoin {
		return land.LandID{}, ReasonInstanceRequired, nil
	}
	instanceID := uuid.NewString()
	return server.GetOrCreateLand(instanceID), "", nil
}

func (rt *Router) configFor(landType string) LandTypeConfig {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.landTypes[landType]
}

// rejectHandshake always encodes the denial as JSON regardless of the
// target land's configured format.
func (rt *Router) rejectHandshake(ctx context.Context, conn transport.Connection, requestID, reason string) {
	if conn == nil {
		return
	}
	data, err := wire.EncodeJoinResponseJSON(wire.JoinResponse{RequestID: requestID, Success: false, Reason: reason})
	if err != nil {
		rt.logger.WithError(err).Error("failed to encode handshake rejection")
		return
	}
	if err := conn.Send(ctx, transport.FrameMessage(data)); err != nil {
		rt.logger.WithError(err).Warn("failed to deliver handshake rejection")
	}
}

func joinPlayerID(req wire.JoinRequest) *land.PlayerID {
	if req.PlayerID == nil {
		return nil
	}
	pid := land.PlayerID(*req.PlayerID)
	return &pid
}

func joinDeviceID(req wire.JoinRequest) *land.ClientID {
	if req.DeviceID == nil {
		return nil
	}
	cid := land.ClientID(*req.DeviceID)
	return &cid
}
