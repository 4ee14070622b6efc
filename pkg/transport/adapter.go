package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/landkeep/pkg/actor"
	"github.com/opd-ai/landkeep/pkg/land"
	"github.com/opd-ai/landkeep/pkg/metrics"
	"github.com/opd-ai/landkeep/pkg/patch"
	"github.com/opd-ai/landkeep/pkg/resilience"
	"github.com/opd-ai/landkeep/pkg/syncengine"
	"github.com/opd-ai/landkeep/pkg/wire"
)

// DuplicateLoginPolicy selects what happens when a join would map two live
// sessions to the same PlayerID.
type DuplicateLoginPolicy int

const (
	// KickOld detaches the existing session (server event "kicked", OnLeave,
	// close) before admitting the new one.
	KickOld DuplicateLoginPolicy = iota
	// RejectNew denies the new join instead of disturbing the existing
	// session.
	RejectNew
)

// JoinResult is returned by PerformJoin on success.
type JoinResult struct {
	PlayerID   land.PlayerID
	PlayerSlot uint16
}

// RecordObserverFunc is invoked by an Adapter after every committed
// mutation it causes (join, leave, action, event), if one has been attached
// with SetRecordObserver. It runs synchronously inside the adapter's
// mailbox job; implementations that do file I/O (pkg/recorder) should be
// fast or internally asynchronous, since it shares the same suspension
// point as the triggering operation.
type RecordObserverFunc func(ctx context.Context, kind string, playerID land.PlayerID, payload interface{})

// Adapter is the per-land TransportAdapter actor: it owns all
// session/player/connection bookkeeping for one land instance, dispatches
// inbound wire messages to the land's Keeper, and drives outbound event and
// state-sync traffic back over Connection. Generalizes per-connection
// hub/client bookkeeping from one hardcoded game to any land.Definition.
type Adapter[S any] struct {
	landID  land.LandID
	keeper  *land.Keeper[S]
	def     *land.Definition[S]
	engine  *syncengine.Engine[S]
	codec   *wire.Codec
	encoder *patch.Encoder

	policy         DuplicateLoginPolicy
	parallelEncode bool

	sendBreaker *resilience.CircuitBreaker

	// recordObserver is an optional reevaluation-recorder hook, invoked
	// after every committed mutation this adapter causes. A nil observer
	// is a no-op; its absence changes nothing about land behavior — the
	// recorder is a diagnostic tap, not persistence.
	recordObserver RecordObserverFunc

	// metrics is an optional Prometheus sink. A nil
	// metrics leaves every Record*/Observe* call a no-op.
	metrics *metrics.Metrics

	// bookMu guards every field below. Writers hold it only while inside a
	// mailbox job (performJoin/onMessage/onDisconnect); syncNow/
	// syncBroadcastOnly take a read lock to snapshot recipients without
	// going through the mailbox at all, since they must be able to run
	// concurrently with message dispatch. With parallelEncode, SyncNow
	// computes, encodes and sends each player's update on its own goroutine.
	bookMu           sync.RWMutex
	sessionToPlayer  map[land.SessionID]land.PlayerID
	playerToSessions map[land.PlayerID]map[land.SessionID]bool
	sessionToClient  map[land.SessionID]land.ClientID
	sessionToConn    map[land.SessionID]Connection
	playerSlots      map[land.PlayerID]uint16
	slotAlloc        *SlotAllocator

	mbox      *actor.Mailbox
	syncLatch actor.Latch

	logger *logrus.Entry
}

// NewAdapter constructs an Adapter for one land instance. hasher may be nil
// (no dynamic-key compression). breaker protects every Connection.send call
// so one wedged socket cannot stall a broadcast fan-out past its configured
// timeout.
func NewAdapter[S any](
	landID land.LandID,
	keeper *land.Keeper[S],
	def *land.Definition[S],
	codec *wire.Codec,
	hasher *patch.PathHasher,
	policy DuplicateLoginPolicy,
	parallelEncode bool,
	breaker *resilience.CircuitBreaker,
) *Adapter[S] {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("transport:" + landID.String()))
	}
	return &Adapter[S]{
		landID:           landID,
		keeper:           keeper,
		def:              def,
		engine:           syncengine.New(def),
		codec:            codec,
		encoder:          patch.NewEncoder(codec.Format, hasher),
		policy:           policy,
		parallelEncode:   parallelEncode,
		sendBreaker:      breaker,
		sessionToPlayer:  make(map[land.SessionID]land.PlayerID),
		playerToSessions: make(map[land.PlayerID]map[land.SessionID]bool),
		sessionToClient:  make(map[land.SessionID]land.ClientID),
		sessionToConn:    make(map[land.SessionID]Connection),
		playerSlots:      make(map[land.PlayerID]uint16),
		slotAlloc:        NewSlotAllocator(),
		mbox:             actor.NewMailbox(64),
		logger:           logrus.WithField("function", "Adapter").WithField("landID", landID.String()),
	}
}

// PerformJoin admits sessionID as session for the resolved session identity.
// Under KickOld it detaches any existing session for the
// same PlayerID (server event "kicked", OnLeave, close) before the new join
// is evaluated; if CanJoin then denies, the old session is not restored —
// an accepted limitation since CanJoin is expected to be stable for a given
// identity (see DESIGN.md).
func (a *Adapter[S]) PerformJoin(ctx context.Context, session land.PlayerSession, clientID land.ClientID, sessionID land.SessionID, conn Connection) (*JoinResult, error) {
	v, err := a.mbox.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		if session.PlayerID != "" && a.policy == KickOld {
			a.kickAllSessionsFor(ctx, session.PlayerID)
		}
		if session.PlayerID != "" && a.policy == RejectNew {
			a.bookMu.RLock()
			live := len(a.playerToSessions[session.PlayerID])
			a.bookMu.RUnlock()
			if live > 0 {
				return nil, &JoinDeniedError{Reason: "duplicate_login"}
			}
		}

		decision, err := a.keeper.Join(ctx, session, clientID, sessionID)
		if err != nil {
			return nil, err
		}
		if !decision.Allow {
			return nil, &JoinDeniedError{Reason: decision.Reason}
		}
		playerID := decision.PlayerID

		a.bookMu.Lock()
		slot, ok := a.playerSlots[playerID]
		if !ok {
			slot = a.slotAlloc.Allocate()
			a.playerSlots[playerID] = slot
		}
		a.sessionToPlayer[sessionID] = playerID
		if a.playerToSessions[playerID] == nil {
			a.playerToSessions[playerID] = make(map[land.SessionID]bool)
		}
		a.playerToSessions[playerID][sessionID] = true
		a.sessionToClient[sessionID] = clientID
		a.sessionToConn[sessionID] = conn
		a.bookMu.Unlock()

		a.logger.WithField("playerID", playerID).WithField("sessionID", sessionID).Info("session joined")
		a.record(ctx, "join", playerID, map[string]string{"clientId": string(clientID)})
		return &JoinResult{PlayerID: playerID, PlayerSlot: slot}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*JoinResult), nil
}

// kickAllSessionsFor must only be called from inside a mailbox job. It
// detaches every existing session for playerID under the KickOld policy.
func (a *Adapter[S]) kickAllSessionsFor(ctx context.Context, playerID land.PlayerID) {
	a.bookMu.RLock()
	sessions := make([]land.SessionID, 0, len(a.playerToSessions[playerID]))
	for sid := range a.playerToSessions[playerID] {
		sessions = append(sessions, sid)
	}
	a.bookMu.RUnlock()

	for _, sid := range sessions {
		a.kickSession(ctx, sid)
	}
}

func (a *Adapter[S]) kickSession(ctx context.Context, sessionID land.SessionID) {
	a.bookMu.RLock()
	conn := a.sessionToConn[sessionID]
	a.bookMu.RUnlock()

	if conn != nil {
		if ev, err := a.codec.EncodeEvent(wire.EventMessage{
			Direction:    wire.DirectionFromServer,
			TypeOrOpcode: "kicked",
			Payload:      json.RawMessage(`{"reason":"duplicate_login"}`),
		}); err == nil {
			if err := a.sendToConn(ctx, conn, ev); err != nil {
				a.logger.WithError(err).WithField("sessionID", sessionID).Warn("failed to notify kicked session")
			}
		}
		_ = conn.Close(CloseKicked)
	}

	playerID, clientID, _ := a.removeSessionBookkeeping(sessionID)
	if playerID != "" {
		if err := a.keeper.Leave(ctx, playerID, clientID); err != nil {
			a.logger.WithError(err).WithField("playerID", playerID).Warn("leave failed during kick")
		}
		a.engine.ClearCacheForDisconnectedPlayer(playerID)
		a.encoder.DropPlayerScope(string(playerID))
		a.record(ctx, "leave", playerID, map[string]string{"reason": "kicked"})
		a.recordLeave("kicked")
	}
}

// removeSessionBookkeeping deletes sessionID's entries and, if it was the
// last session for its player, releases the player's slot and returns
// lastSession=true.
func (a *Adapter[S]) removeSessionBookkeeping(sessionID land.SessionID) (playerID land.PlayerID, clientID land.ClientID, lastSession bool) {
	a.bookMu.Lock()
	defer a.bookMu.Unlock()

	playerID = a.sessionToPlayer[sessionID]
	clientID = a.sessionToClient[sessionID]
	delete(a.sessionToPlayer, sessionID)
	delete(a.sessionToClient, sessionID)
	delete(a.sessionToConn, sessionID)

	if sessions, ok := a.playerToSessions[playerID]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(a.playerToSessions, playerID)
			if slot, ok := a.playerSlots[playerID]; ok {
				a.slotAlloc.Release(slot)
				delete(a.playerSlots, playerID)
			}
			lastSession = true
		}
	}
	return playerID, clientID, lastSession
}

// OnDisconnect removes sessionID's bookkeeping and, if it was the player's
// last live session, runs OnLeave and invalidates the sync caches (spec
// §4.2 "onDisconnect"). It then schedules a broadcast-only refresh so
// remaining players see the departure promptly without waiting for their
// next regular syncNow.
func (a *Adapter[S]) OnDisconnect(ctx context.Context, sessionID land.SessionID) error {
	_, err := a.mbox.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		playerID, clientID, lastSession := a.removeSessionBookkeeping(sessionID)
		if playerID == "" {
			return nil, ErrUnknownSession
		}
		if lastSession {
			if err := a.keeper.Leave(ctx, playerID, clientID); err != nil {
				a.logger.WithError(err).WithField("playerID", playerID).Warn("leave failed on disconnect")
			}
			a.engine.ClearCacheForDisconnectedPlayer(playerID)
			a.encoder.DropPlayerScope(string(playerID))
			a.record(ctx, "leave", playerID, map[string]string{"reason": "disconnect"})
			a.recordLeave("disconnect")
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	go func() {
		_ = a.SyncBroadcastOnly(context.Background())
	}()
	return nil
}

// OnMessage decodes and dispatches one inbound wire message from sessionID:
// Action is routed to the keeper and answered,
// Event is routed to the keeper with no response, and a repeat Join in the
// jsonObject envelope is ignored as idempotent. A message that fails to
// decode, including one whose type or opcode the codec does not recognise,
// is not answered: OnMessage returns the wrapped decode error and sends
// nothing to the client. The unknown_message error event is sent only for a
// decoded kind with no case below, which Codec.Decode does not produce.
func (a *Adapter[S]) OnMessage(ctx context.Context, sessionID land.SessionID, data []byte) error {
	_, err := a.mbox.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		a.bookMu.RLock()
		playerID, known := a.sessionToPlayer[sessionID]
		clientID := a.sessionToClient[sessionID]
		conn := a.sessionToConn[sessionID]
		a.bookMu.RUnlock()
		if !known {
			return nil, ErrUnknownSession
		}

		msg, err := a.codec.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("transport: decode message: %w", err)
		}

		switch msg.Kind {
		case wire.KindAction:
			return nil, a.dispatchAction(ctx, conn, playerID, clientID, msg.Action)
		case wire.KindEvent:
			if msg.Event.Direction == wire.DirectionFromClient {
				if err := a.keeper.HandleEvent(ctx, msg.Event.TypeOrOpcode, msg.Event.Payload, playerID); err != nil {
					a.logger.WithError(err).WithField("eventType", msg.Event.TypeOrOpcode).Debug("event handler rejected")
				} else {
					a.record(ctx, "event:"+msg.Event.TypeOrOpcode, playerID, msg.Event.Payload)
					if a.metrics != nil {
						a.metrics.RecordEvent(msg.Event.TypeOrOpcode)
					}
				}
			}
			return nil, nil
		case wire.KindJoin:
			a.logger.WithField("sessionID", sessionID).Debug("duplicate join message ignored")
			return nil, nil
		default:
			a.sendUnknownMessageError(ctx, conn)
			return nil, ErrUnrecognizedMessage
		}
	})
	return err
}

func (a *Adapter[S]) dispatchAction(ctx context.Context, conn Connection, playerID land.PlayerID, clientID land.ClientID, action *wire.ActionRequest) error {
	resp := wire.ActionResponse{RequestID: action.RequestID}

	response, err := a.keeper.HandleAction(ctx, action.TypeIdentifier, action.Payload, playerID, clientID)
	if err != nil {
		resp.Error = err.Error()
		if a.metrics != nil {
			a.metrics.RecordAction(action.TypeIdentifier, "error")
		}
	} else {
		a.record(ctx, "action:"+action.TypeIdentifier, playerID, response)
		if a.metrics != nil {
			a.metrics.RecordAction(action.TypeIdentifier, "success")
		}
		if response != nil {
			raw, merr := json.Marshal(response)
			if merr != nil {
				resp.Error = fmt.Sprintf("marshal action response: %v", merr)
			} else {
				resp.Response = raw
			}
		}
	}

	out, eerr := a.codec.EncodeActionResponse(resp)
	if eerr != nil {
		return fmt.Errorf("transport: encode action response: %w", eerr)
	}
	if conn == nil {
		return nil
	}
	return a.sendToConn(ctx, conn, out)
}

func (a *Adapter[S]) sendUnknownMessageError(ctx context.Context, conn Connection) {
	if conn == nil {
		return
	}
	ev := wire.EventMessage{
		Direction:    wire.DirectionFromServer,
		TypeOrOpcode: "error",
		Payload:      json.RawMessage(`{"kind":"unknown_message"}`),
	}
	out, err := a.codec.EncodeEvent(ev)
	if err != nil {
		return
	}
	_ = a.sendToConn(ctx, conn, out)
}

// sendToConn frames data as an ordinary wire.Codec message and writes it to
// conn under circuit-breaker protection, so a single wedged socket fails
// fast instead of stalling whichever caller (message dispatch, kick, event
// fan-out) is trying to reach it.
func (a *Adapter[S]) sendToConn(ctx context.Context, conn Connection, data []byte) error {
	return a.sendRaw(ctx, conn, frameMessage(data))
}

// sendRaw writes already-framed bytes to conn under circuit-breaker
// protection. Used directly by the sync path, whose StateUpdate frames are
// framed with frameStateUpdate instead of frameMessage.
func (a *Adapter[S]) sendRaw(ctx context.Context, conn Connection, data []byte) error {
	return a.sendBreaker.Execute(ctx, func(ctx context.Context) error {
		return conn.Send(ctx, data)
	})
}

// SetRecordObserver attaches (or, passed nil, detaches) the reevaluation
// recorder hook. Must be called before the adapter starts receiving traffic
// to avoid missing early tick frames; the adapter itself does not
// synchronize against concurrent SetRecordObserver calls.
func (a *Adapter[S]) SetRecordObserver(fn RecordObserverFunc) {
	a.recordObserver = fn
}

func (a *Adapter[S]) record(ctx context.Context, kind string, playerID land.PlayerID, payload interface{}) {
	if a.recordObserver != nil {
		a.recordObserver(ctx, kind, playerID, payload)
	}
}

// SetMetrics attaches (or, passed nil, detaches) a Prometheus sink. Must be
// called before the adapter starts receiving traffic, same caveat as
// SetRecordObserver.
func (a *Adapter[S]) SetMetrics(m *metrics.Metrics) {
	a.metrics = m
}

func (a *Adapter[S]) recordLeave(reason string) {
	if a.metrics != nil {
		a.metrics.RecordLeave(a.landID.LandType, reason)
	}
}

// LandID returns the land this adapter is bound to.
func (a *Adapter[S]) LandID() land.LandID {
	return a.landID
}

// Shutdown stops the adapter's mailbox. It does not close any connection or
// destroy the underlying keeper; callers orchestrate teardown order (spec
// §9 "Lifecycle ownership").
func (a *Adapter[S]) Shutdown() {
	a.mbox.Shutdown()
}
