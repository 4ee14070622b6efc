package transport

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/landkeep/pkg/land"
	"github.com/opd-ai/landkeep/pkg/patch"
	"github.com/opd-ai/landkeep/pkg/wire"
)

func (a *Adapter[S]) observeSyncDuration(start time.Time) {
	if a.metrics != nil {
		a.metrics.ObserveSyncDuration(a.landID.LandType, time.Since(start))
	}
}

func formatLabel(f patch.Format) string {
	switch f {
	case patch.FormatJSONObject:
		return "json_object"
	case patch.FormatOpcodeJSONArray:
		return "opcode_json"
	case patch.FormatOpcodeMessagePack:
		return "opcode_msgpack"
	default:
		return "unknown"
	}
}

// SendEvent delivers ev to every session matched by target. It does not go
// through the sync latch: event
// delivery and state-sync delivery are independent channels that may
// legitimately run concurrently.
func (a *Adapter[S]) SendEvent(ctx context.Context, ev wire.EventMessage, target Target) error {
	_, err := a.mbox.Submit(ctx, func(ctx context.Context) (interface{}, error) {
		data, err := a.codec.EncodeEvent(ev)
		if err != nil {
			return nil, err
		}
		for _, conn := range a.resolveTarget(target) {
			if err := a.sendToConn(ctx, conn, data); err != nil {
				a.logger.WithError(err).Warn("sendEvent delivery failed")
			}
		}
		return nil, nil
	})
	return err
}

func (a *Adapter[S]) resolveTarget(target Target) []Connection {
	a.bookMu.RLock()
	defer a.bookMu.RUnlock()

	switch target.Kind {
	case TargetSession:
		if conn, ok := a.sessionToConn[target.SessionID]; ok {
			return []Connection{conn}
		}
		return nil
	case TargetPlayer:
		var out []Connection
		for sid := range a.playerToSessions[target.PlayerID] {
			if conn, ok := a.sessionToConn[sid]; ok {
				out = append(out, conn)
			}
		}
		return out
	case TargetBroadcastExcept:
		var out []Connection
		for sid, conn := range a.sessionToConn {
			if a.sessionToPlayer[sid] == target.ExceptPlayerID {
				continue
			}
			out = append(out, conn)
		}
		return out
	case TargetBroadcast:
		fallthrough
	default:
		var out []Connection
		for _, conn := range a.sessionToConn {
			out = append(out, conn)
		}
		return out
	}
}

// recipientSnapshot is a read-locked view of which connections belong to
// which player, used by syncNow/syncBroadcastOnly so they never need to
// serialize through the adapter's mailbox: the single-flight latch, not the
// mailbox, is what coalesces concurrent sync calls.
type recipientSnapshot struct {
	byPlayer map[land.PlayerID][]Connection
	all      []Connection
}

func (a *Adapter[S]) snapshotRecipients() recipientSnapshot {
	a.bookMu.RLock()
	defer a.bookMu.RUnlock()

	snap := recipientSnapshot{byPlayer: make(map[land.PlayerID][]Connection, len(a.playerToSessions))}
	for playerID, sessions := range a.playerToSessions {
		for sid := range sessions {
			if conn, ok := a.sessionToConn[sid]; ok {
				snap.byPlayer[playerID] = append(snap.byPlayer[playerID], conn)
				snap.all = append(snap.all, conn)
			}
		}
	}
	return snap
}

// SyncNow computes and delivers each connected player's per-player
// StateUpdate (firstSync on their first call, diff thereafter). Concurrent
// calls coalesce via the non-blocking single-flight latch: a call that finds
// the latch already held returns immediately without doing any work.
func (a *Adapter[S]) SyncNow(ctx context.Context) error {
	if !a.syncLatch.TryAcquire() {
		return nil
	}
	defer a.syncLatch.Release()
	start := time.Now()
	defer a.observeSyncDuration(start)

	state := a.keeper.CurrentState()
	snap := a.snapshotRecipients()

	sendOne := func(playerID land.PlayerID, conns []Connection) error {
		update, err := a.engine.GenerateDiff(playerID, state)
		if err != nil {
			a.logger.WithError(err).WithField("playerID", playerID).Warn("generateDiff failed")
			return nil
		}
		if update.Kind == patch.KindNoChange {
			return nil
		}
		wasFirstSync := update.Kind == patch.KindFirstSync
		if wasFirstSync {
			a.engine.MarkFirstSyncReceived(playerID)
		}

		data, err := a.encodeStateUpdate(update, patch.PlayerScope(string(playerID)), wasFirstSync)
		if err != nil {
			a.logger.WithError(err).WithField("playerID", playerID).Warn("encode state update failed")
			return nil
		}
		for _, conn := range conns {
			if err := a.sendRaw(ctx, conn, data); err != nil {
				a.logger.WithError(err).WithField("playerID", playerID).Warn("syncNow delivery failed")
			}
		}
		return nil
	}

	if !a.parallelEncode {
		for playerID, conns := range snap.byPlayer {
			_ = sendOne(playerID, conns)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	_ = gctx
	for playerID, conns := range snap.byPlayer {
		playerID, conns := playerID, conns
		g.Go(func() error {
			_ = sendOne(playerID, conns)
			return nil
		})
	}
	return g.Wait()
}

// SyncBroadcastOnly computes the shared broadcast-scope delta once and
// delivers the identical encoded bytes to every connected session, coalesced
// by the same single-flight latch as SyncNow — the two share one latch
// since both are "the sync operation", just at different granularities.
func (a *Adapter[S]) SyncBroadcastOnly(ctx context.Context) error {
	if !a.syncLatch.TryAcquire() {
		return nil
	}
	defer a.syncLatch.Release()
	start := time.Now()
	defer a.observeSyncDuration(start)

	state := a.keeper.CurrentState()
	update, err := a.engine.GenerateBroadcastDiff(state)
	if err != nil {
		a.logger.WithError(err).Warn("generateBroadcastDiff failed")
		return nil
	}
	if update.Kind == patch.KindNoChange {
		return nil
	}

	data, err := a.encodeStateUpdate(update, patch.BroadcastScope, false)
	if err != nil {
		a.logger.WithError(err).Warn("encode broadcast state update failed")
		return nil
	}

	snap := a.snapshotRecipients()
	for _, conn := range snap.all {
		if err := a.sendRaw(ctx, conn, data); err != nil {
			a.logger.WithError(err).Warn("syncBroadcastOnly delivery failed")
		}
	}
	return nil
}

func (a *Adapter[S]) encodeStateUpdate(update patch.StateUpdate, scope patch.Scope, forceDefine bool) ([]byte, error) {
	_ = forceDefine // slot-table force-redefine is handled inside Encoder via update.Kind == firstSync
	payload, err := a.encoder.EncodeUpdate(update, scope)
	if err != nil {
		return nil, err
	}
	if a.metrics != nil {
		a.metrics.ObserveEncodeBytes(formatLabel(a.codec.Format), len(payload))
	}
	return frameStateUpdate(payload), nil
}
