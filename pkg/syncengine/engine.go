package syncengine

import (
	"sync"

	"github.com/opd-ai/landkeep/pkg/land"
	"github.com/opd-ai/landkeep/pkg/patch"
)

// Engine is the per-land sync engine. It is generic over the
// land-state type S, instantiated once per LandKeeper. Its callers are not
// serialized: the Adapter's SyncNow and SyncBroadcastOnly run outside its
// mailbox (SyncNow with one goroutine per player when parallel encode is
// on) while mailbox jobs clear player caches, so the internal mutex guards
// every method.
type Engine[S any] struct {
	def *land.Definition[S]

	mu                    sync.RWMutex
	lastSnapshotByPlayer  map[land.PlayerID]ValueMap
	firstSyncSentByPlayer map[land.PlayerID]bool

	lastBroadcastSnapshot ValueMap
}

// New constructs an Engine bound to a land's Definition (for FieldScopes).
func New[S any](def *land.Definition[S]) *Engine[S] {
	return &Engine[S]{
		def:                   def,
		lastSnapshotByPlayer:  make(map[land.PlayerID]ValueMap),
		firstSyncSentByPlayer: make(map[land.PlayerID]bool),
		lastBroadcastSnapshot: ValueMap{},
	}
}

// broadcastOnly extracts just the ScopeBroadcast top-level fields from a
// full projection, dropping every perPlayerSlice field entirely.
func broadcastOnly[S any](def *land.Definition[S], full ValueMap) ValueMap {
	out := make(ValueMap, len(full))
	for field, value := range full {
		if def.ScopeOf(field) == land.ScopeBroadcast {
			out[field] = value
		}
	}
	return out
}

// GenerateBroadcastDiff computes the shared broadcast-scope delta sent
// identically to every connected player. Unlike GenerateDiff it never
// returns firstSync: broadcast-only sync is a
// refresh path, not the per-player join/reconnect seeding path.
func (e *Engine[S]) GenerateBroadcastDiff(state *S) (patch.StateUpdate, error) {
	full, err := ProjectFull(state)
	if err != nil {
		return patch.StateUpdate{}, err
	}
	current := broadcastOnly(e.def, full)

	e.mu.Lock()
	defer e.mu.Unlock()

	patches := diffMaps(e.lastBroadcastSnapshot, current)
	e.lastBroadcastSnapshot = current

	if len(patches) == 0 {
		return patch.NoChange, nil
	}
	return patch.Diff(patches), nil
}

// LateJoinSnapshot computes the full projection for playerID and populates
// the per-player cache. It deliberately does NOT set the firstSync-sent
// flag, so the next GenerateDiff for playerID still returns a firstSync.
// The Adapter does not call it; its sync path seeds each player through
// GenerateDiff's firstSync.
func (e *Engine[S]) LateJoinSnapshot(playerID land.PlayerID, state *S) (ValueMap, error) {
	full, err := ProjectFull(state)
	if err != nil {
		return nil, err
	}
	projected := projectFor(e.def, playerID, full)

	e.mu.Lock()
	e.lastSnapshotByPlayer[playerID] = projected
	e.mu.Unlock()

	return projected, nil
}

// GenerateDiff computes the StateUpdate to send to playerID given the
// land's current state. If no firstSync has been marked received for this
// player, it returns a firstSync covering the whole current projection;
// otherwise it diffs the cached view against the current one.
func (e *Engine[S]) GenerateDiff(playerID land.PlayerID, state *S) (patch.StateUpdate, error) {
	full, err := ProjectFull(state)
	if err != nil {
		return patch.StateUpdate{}, err
	}
	current := projectFor(e.def, playerID, full)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.firstSyncSentByPlayer[playerID] {
		patches := snapshotPatches(current)
		e.lastSnapshotByPlayer[playerID] = current
		return patch.FirstSync(patches), nil
	}

	cached := e.lastSnapshotByPlayer[playerID]
	patches := diffMaps(cached, current)
	e.lastSnapshotByPlayer[playerID] = current

	if len(patches) == 0 {
		return patch.NoChange, nil
	}
	return patch.Diff(patches), nil
}

// MarkFirstSyncReceived sets the firstSync-sent flag for playerID; later
// calls to GenerateDiff return diff/noChange instead of firstSync.
func (e *Engine[S]) MarkFirstSyncReceived(playerID land.PlayerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.firstSyncSentByPlayer[playerID] = true
}

// ClearCacheForDisconnectedPlayer drops the cache and firstSync-sent flag
// for playerID so a future reconnect re-seeds with a fresh firstSync.
func (e *Engine[S]) ClearCacheForDisconnectedPlayer(playerID land.PlayerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.lastSnapshotByPlayer, playerID)
	delete(e.firstSyncSentByPlayer, playerID)
}
