package land

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/landkeep/pkg/actor"
)

// DestroyedCallback notifies whoever created a Keeper (the LandManager) that
// it has torn itself down, so the manager can remove its container and the
// adapter can detach.
type DestroyedCallback func(landID LandID)

// Keeper is the per-land serial executor: the single
// serialization point for state mutation, rule evaluation, and
// OnJoin/OnLeave/HandleAction/HandleEvent invocation. All public operations
// run on the Keeper's actor mailbox in FIFO submission order.
type Keeper[S any] struct {
	landID LandID
	def    *Definition[S]
	mbox   *actor.Mailbox

	stateMu sync.RWMutex
	state   *S

	players map[PlayerID]PlayerRecord

	destroyed         bool
	destroyWhenEmpty  time.Duration
	emptySince        *time.Time
	onDestroyed       DestroyedCallback
	idleTimerVersion  int
	logger            *logrus.Entry
}

// NewKeeper constructs a Keeper for landID using def's initial-state
// constructor. destroyWhenEmpty of 0 disables idle-destroy.
func NewKeeper[S any](landID LandID, def *Definition[S], destroyWhenEmpty time.Duration, onDestroyed DestroyedCallback) *Keeper[S] {
	return &Keeper[S]{
		landID:           landID,
		def:              def,
		mbox:             actor.NewMailbox(64),
		state:            def.NewState(),
		players:          make(map[PlayerID]PlayerRecord),
		destroyWhenEmpty: destroyWhenEmpty,
		onDestroyed:      onDestroyed,
		logger:           logrus.WithField("function", "Keeper").WithField("landID", landID.String()),
	}
}

func deepCopyState[S any](state *S) (*S, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("land: marshal state for scratch copy: %w", err)
	}
	scratch := new(S)
	if err := json.Unmarshal(raw, scratch); err != nil {
		return nil, fmt.Errorf("land: unmarshal scratch copy: %w", err)
	}
	return scratch, nil
}

// CurrentState returns the keeper's current state pointer. The keeper never
// mutates a state object after handing it out: every committed mutation
// replaces the pointer with a fresh scratch copy, so callers may treat the
// returned value as an immutable read-only snapshot without going through
// the mailbox.
func (k *Keeper[S]) CurrentState() *S {
	k.stateMu.RLock()
	defer k.stateMu.RUnlock()
	return k.state
}

func (k *Keeper[S]) commit(scratch *S) {
	k.stateMu.Lock()
	k.state = scratch
	k.stateMu.Unlock()
}

// Join evaluates CanJoin and, on allow, runs OnJoin and records the player.
// Joins that fail CanJoin leave players/state untouched (invariant I2).
func (k *Keeper[S]) Join(ctx context.Context, session PlayerSession, clientID ClientID, sessionID SessionID) (JoinDecision, error) {
	v, err := k.mbox.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		if k.destroyed {
			return JoinDecision{}, ErrLandDestroyed
		}

		lctx := LandContext{PlayerID: session.PlayerID, DeviceID: session.DeviceID, Metadata: session.Metadata}
		scratch, err := deepCopyState(k.CurrentState())
		if err != nil {
			return JoinDecision{}, err
		}

		decision := k.def.EvaluateCanJoin(scratch, session, lctx)
		if !decision.Allow {
			k.logger.WithField("reason", decision.Reason).Debug("join denied")
			return decision, nil
		}

		playerID := decision.PlayerID
		if playerID == "" {
			playerID = session.PlayerID
		}
		lctx.PlayerID = playerID

		k.def.RunOnJoin(scratch, lctx)
		k.commit(scratch)

		k.players[playerID] = PlayerRecord{ClientID: clientID, SessionID: sessionID, JoinedAt: time.Now()}
		k.emptySince = nil
		k.idleTimerVersion++

		k.logger.WithField("playerID", playerID).Info("player joined")
		return Allowed(playerID), nil
	})
	if err != nil {
		return JoinDecision{}, err
	}
	return v.(JoinDecision), nil
}

// Leave runs OnLeave and removes playerID from the keeper's bookkeeping,
// arming the idle-destroy timer if players becomes empty.
func (k *Keeper[S]) Leave(ctx context.Context, playerID PlayerID, clientID ClientID) error {
	_, err := k.mbox.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		if k.destroyed {
			return nil, nil
		}
		rec, ok := k.players[playerID]
		if !ok {
			return nil, nil
		}

		lctx := LandContext{PlayerID: playerID, DeviceID: rec.ClientID}
		scratch, err := deepCopyState(k.CurrentState())
		if err != nil {
			return nil, err
		}
		k.def.RunOnLeave(scratch, lctx)
		k.commit(scratch)

		delete(k.players, playerID)
		k.logger.WithField("playerID", playerID).Info("player left")

		if len(k.players) == 0 {
			now := time.Now()
			k.emptySince = &now
			k.armIdleDestroy()
		}
		return nil, nil
	})
	return err
}

func (k *Keeper[S]) armIdleDestroy() {
	if k.destroyWhenEmpty <= 0 {
		return
	}
	k.idleTimerVersion++
	version := k.idleTimerVersion
	time.AfterFunc(k.destroyWhenEmpty, func() {
		_, _ = k.mbox.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
			if k.destroyed || k.emptySince == nil || version != k.idleTimerVersion {
				return nil, nil
			}
			k.destroyLocked()
			return nil, nil
		})
	})
}

// HandleAction type-dispatches to the registered ActionFunc. A handler
// returning an error discards its scratch mutation entirely; the error is
// surfaced to the adapter as-is so it can build an action_failed response.
func (k *Keeper[S]) HandleAction(ctx context.Context, actionType string, payload json.RawMessage, playerID PlayerID, clientID ClientID) (interface{}, error) {
	v, err := k.mbox.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		if k.destroyed {
			return nil, ErrLandDestroyed
		}
		fn, ok := k.def.Actions[actionType]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, actionType)
		}

		rec := k.players[playerID]
		lctx := LandContext{PlayerID: playerID, DeviceID: rec.ClientID}

		scratch, err := deepCopyState(k.CurrentState())
		if err != nil {
			return nil, err
		}
		response, err := fn(scratch, payload, lctx)
		if err != nil {
			k.logger.WithField("actionType", actionType).WithError(err).Warn("action handler failed, scratch discarded")
			return nil, err
		}
		k.commit(scratch)
		return response, nil
	})
	return v, err
}

// HandleEvent type-dispatches to the registered EventFunc. Events never fail
// (EventFunc has no error return) and always commit.
func (k *Keeper[S]) HandleEvent(ctx context.Context, eventType string, payload json.RawMessage, playerID PlayerID) error {
	_, err := k.mbox.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		if k.destroyed {
			return nil, ErrLandDestroyed
		}
		fn, ok := k.def.Events[eventType]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
		}

		rec := k.players[playerID]
		lctx := LandContext{PlayerID: playerID, DeviceID: rec.ClientID}

		scratch, err := deepCopyState(k.CurrentState())
		if err != nil {
			return nil, err
		}
		fn(scratch, payload, lctx)
		k.commit(scratch)
		return nil, nil
	})
	return err
}

// PlayerCount returns the number of currently joined players.
func (k *Keeper[S]) PlayerCount(ctx context.Context) (int, error) {
	v, err := k.mbox.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		return len(k.players), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Players returns a snapshot copy of the players map, for stats/health
// reporting.
func (k *Keeper[S]) Players(ctx context.Context) (map[PlayerID]PlayerRecord, error) {
	v, err := k.mbox.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		out := make(map[PlayerID]PlayerRecord, len(k.players))
		for k2, v2 := range k.players {
			out[k2] = v2
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[PlayerID]PlayerRecord), nil
}

// Destroy tears the keeper down explicitly: runs OnDestroy, marks the keeper
// destroyed so further operations return ErrLandDestroyed, and notifies the
// onDestroyed callback.
func (k *Keeper[S]) Destroy(ctx context.Context) error {
	_, err := k.mbox.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		k.destroyLocked()
		return nil, nil
	})
	return err
}

// destroyLocked must only be called from inside a mailbox job.
func (k *Keeper[S]) destroyLocked() {
	if k.destroyed {
		return
	}
	k.def.RunOnDestroy(k.CurrentState())
	k.destroyed = true
	k.logger.Info("land destroyed")
	if k.onDestroyed != nil {
		k.onDestroyed(k.landID)
	}
}

// Shutdown stops the keeper's mailbox without running OnDestroy, used for
// process-wide shutdown where in-flight jobs should finish but no further
// work should be accepted.
func (k *Keeper[S]) Shutdown() {
	k.mbox.Shutdown()
}

// LandID returns the land's identifier.
func (k *Keeper[S]) LandID() LandID {
	return k.landID
}
