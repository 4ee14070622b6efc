package transport

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/landkeep/pkg/land"
	"github.com/opd-ai/landkeep/pkg/patch"
	"github.com/opd-ai/landkeep/pkg/wire"
)

type tState struct {
	Turn    int            `json:"turn"`
	Private map[string]int `json:"private"`
}

func testDefinition() *land.Definition[tState] {
	return &land.Definition[tState]{
		NewState: func() *tState { return &tState{Private: map[string]int{}} },
		OnJoin: func(state *tState, ctx land.LandContext) {
			if state.Private == nil {
				state.Private = map[string]int{}
			}
			state.Private[string(ctx.PlayerID)] = 0
		},
		OnLeave: func(state *tState, ctx land.LandContext) {
			delete(state.Private, string(ctx.PlayerID))
		},
		Actions: map[string]land.ActionFunc[tState]{
			"increment": func(state *tState, payload json.RawMessage, ctx land.LandContext) (interface{}, error) {
				state.Private[string(ctx.PlayerID)]++
				return state.Private[string(ctx.PlayerID)], nil
			},
		},
		Events: map[string]land.EventFunc[tState]{
			"tick": func(state *tState, payload json.RawMessage, ctx land.LandContext) {
				state.Turn++
			},
		},
		FieldScopes: map[string]land.FieldScope{
			"turn":    land.ScopeBroadcast,
			"private": land.ScopePerPlayerSlice,
		},
	}
}

// fakeConn records every frame sent to it and lets tests force a send error.
type fakeConn struct {
	mu      sync.Mutex
	sent    [][]byte
	closed  bool
	reason  ConnectionCloseReason
	failing bool
}

func (c *fakeConn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return assertErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.sent = append(c.sent, cp)
	return nil
}

func (c *fakeConn) Close(reason ConnectionCloseReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.reason = reason
	return nil
}

func (c *fakeConn) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

var assertErr = &sendErr{}

type sendErr struct{}

func (*sendErr) Error() string { return "fake send failure" }

// blockingConn blocks inside Send until release is closed, closing entered
// the first time Send is called. Tests use it to force two SyncNow calls to
// genuinely overlap instead of running one after the other.
type blockingConn struct {
	mu        sync.Mutex
	sent      [][]byte
	entered   chan struct{}
	enterOnce sync.Once
	release   chan struct{}
}

func newBlockingConn() *blockingConn {
	return &blockingConn{entered: make(chan struct{}), release: make(chan struct{})}
}

func (c *blockingConn) Send(ctx context.Context, data []byte) error {
	c.enterOnce.Do(func() { close(c.entered) })
	<-c.release
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.sent = append(c.sent, cp)
	return nil
}

func (c *blockingConn) Close(reason ConnectionCloseReason) error { return nil }

func (c *blockingConn) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

func newTestAdapter(t *testing.T) *Adapter[tState] {
	t.Helper()
	def := testDefinition()
	keeper := land.NewKeeper(land.LandID{LandType: "test", InstanceID: "1"}, def, 0, nil)
	codec := wire.NewCodec(patch.FormatJSONObject)
	return NewAdapter(land.LandID{LandType: "test", InstanceID: "1"}, keeper, def, codec, nil, KickOld, false, nil)
}

func TestPerformJoinAssignsDistinctSlots(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	r1, err := a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p1"}, "c1", "s1", &fakeConn{})
	require.NoError(t, err)
	r2, err := a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p2"}, "c2", "s2", &fakeConn{})
	require.NoError(t, err)

	assert.Equal(t, land.PlayerID("p1"), r1.PlayerID)
	assert.NotEqual(t, r1.PlayerSlot, r2.PlayerSlot)
}

func TestPerformJoinKicksOldSession(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	oldConn := &fakeConn{}
	_, err := a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p1"}, "c1", "s1", oldConn)
	require.NoError(t, err)

	newConn := &fakeConn{}
	result, err := a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p1"}, "c1", "s2", newConn)
	require.NoError(t, err)
	assert.Equal(t, land.PlayerID("p1"), result.PlayerID)

	assert.True(t, oldConn.closed)
	assert.Equal(t, CloseKicked, oldConn.reason)
	require.Len(t, oldConn.frames(), 1, "old session should receive a kicked notice before being closed")

	a.bookMu.RLock()
	_, stillTracked := a.sessionToPlayer["s1"]
	playerID, nowTracked := a.sessionToPlayer["s2"]
	a.bookMu.RUnlock()
	assert.False(t, stillTracked)
	assert.True(t, nowTracked)
	assert.Equal(t, land.PlayerID("p1"), playerID)
}

func TestOnMessageDispatchesActionAndReplies(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	conn := &fakeConn{}
	_, err := a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p1"}, "c1", "s1", conn)
	require.NoError(t, err)

	codec := wire.NewCodec(patch.FormatJSONObject)
	reqBytes, err := codec.EncodeActionRequest(wire.ActionRequest{RequestID: "r1", TypeIdentifier: "increment"})
	require.NoError(t, err)

	require.NoError(t, a.OnMessage(ctx, "s1", reqBytes))

	frames := conn.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, frameKindMessage, frames[0][0])

	resp, err := codec.DecodeActionResponse(frames[0][1:])
	require.NoError(t, err)
	assert.Equal(t, "r1", resp.RequestID)
	assert.Empty(t, resp.Error)
}

func TestOnMessageUnknownSessionErrors(t *testing.T) {
	a := newTestAdapter(t)
	err := a.OnMessage(context.Background(), "ghost", []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestOnDisconnectRunsLeaveAndFreesSlot(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	conn := &fakeConn{}
	r1, err := a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p1"}, "c1", "s1", conn)
	require.NoError(t, err)

	require.NoError(t, a.OnDisconnect(ctx, "s1"))

	a.bookMu.RLock()
	_, tracked := a.sessionToPlayer["s1"]
	_, slotTaken := a.playerSlots["p1"]
	a.bookMu.RUnlock()
	assert.False(t, tracked)
	assert.False(t, slotTaken)

	r2, err := a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p2"}, "c2", "s2", &fakeConn{})
	require.NoError(t, err)
	assert.Equal(t, r1.PlayerSlot, r2.PlayerSlot, "freed slot should be reused by the smallest-free allocator")
}

func TestSyncNowSendsFirstSyncThenDiff(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	conn := &fakeConn{}
	_, err := a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p1"}, "c1", "s1", conn)
	require.NoError(t, err)

	require.NoError(t, a.SyncNow(ctx))
	frames := conn.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, frameKindStateUpdate, frames[0][0])

	decoder := patch.NewDecoder(patch.FormatJSONObject, nil)
	update, err := decoder.DecodeUpdate(frames[0][1:], patch.PlayerScope("p1"))
	require.NoError(t, err)
	assert.Equal(t, patch.KindFirstSync, update.Kind)

	require.NoError(t, a.keeper.HandleEvent(ctx, "tick", nil, "p1"))
	require.NoError(t, a.SyncNow(ctx))

	frames = conn.frames()
	require.Len(t, frames, 2)
	update, err = decoder.DecodeUpdate(frames[1][1:], patch.PlayerScope("p1"))
	require.NoError(t, err)
	assert.Equal(t, patch.KindDiff, update.Kind)
}

func TestSyncNowCoalescesConcurrentCalls(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	require.True(t, a.syncLatch.TryAcquire())
	require.NoError(t, a.SyncNow(ctx), "a held latch must make SyncNow a no-op, not an error")
	a.syncLatch.Release()
}

// TestSyncNowCoalescesUnderRealConcurrency forces two SyncNow calls to
// genuinely overlap by blocking the first one mid-Send, rather than
// simulating contention by holding the latch manually. The second call must
// see the latch already held and return without blocking or sending a
// second frame, and the engine's per-player snapshot cache must come out of
// the race uncorrupted.
func TestSyncNowCoalescesUnderRealConcurrency(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	conn := newBlockingConn()
	_, err := a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p1"}, "c1", "s1", conn)
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- a.SyncNow(ctx)
	}()

	select {
	case <-conn.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first SyncNow never reached Connection.Send")
	}

	secondDone := make(chan error, 1)
	go func() {
		secondDone <- a.SyncNow(ctx)
	}()

	select {
	case err := <-secondDone:
		require.NoError(t, err, "a call that finds the latch held must coalesce, not error")
	case <-time.After(2 * time.Second):
		t.Fatal("second SyncNow blocked behind the first instead of coalescing")
	}

	close(conn.release)

	select {
	case err := <-firstDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("first SyncNow never returned after its Send unblocked")
	}

	require.Len(t, conn.frames(), 1, "the coalesced call must not deliver a second frame")

	// A subsequent real sync must still compute a correct diff against the
	// snapshot the first call cached, proving the coalesced no-op left
	// lastSnapshotByPlayer untouched.
	require.NoError(t, a.keeper.HandleEvent(ctx, "tick", nil, "p1"))
	require.NoError(t, a.SyncNow(ctx))

	frames := conn.frames()
	require.Len(t, frames, 2)
	decoder := patch.NewDecoder(patch.FormatJSONObject, nil)
	update, err := decoder.DecodeUpdate(frames[1][1:], patch.PlayerScope("p1"))
	require.NoError(t, err)
	assert.Equal(t, patch.KindDiff, update.Kind)
}

func TestSyncBroadcastOnlySendsSharedDelta(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	conn1 := &fakeConn{}
	conn2 := &fakeConn{}
	_, err := a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p1"}, "c1", "s1", conn1)
	require.NoError(t, err)
	_, err = a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p2"}, "c2", "s2", conn2)
	require.NoError(t, err)

	require.NoError(t, a.keeper.HandleEvent(ctx, "tick", nil, "p1"))
	require.NoError(t, a.SyncBroadcastOnly(ctx))

	f1 := conn1.frames()
	f2 := conn2.frames()
	require.Len(t, f1, 1)
	require.Len(t, f2, 1)
	assert.Equal(t, f1[0], f2[0], "broadcast-only sync sends identical bytes to every connected session")
}

func TestSendEventTargetsSinglePlayer(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	conn1 := &fakeConn{}
	conn2 := &fakeConn{}
	_, err := a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p1"}, "c1", "s1", conn1)
	require.NoError(t, err)
	_, err = a.PerformJoin(ctx, land.PlayerSession{PlayerID: "p2"}, "c2", "s2", conn2)
	require.NoError(t, err)

	ev := wire.EventMessage{Direction: wire.DirectionFromServer, TypeOrOpcode: "ping"}
	require.NoError(t, a.SendEvent(ctx, ev, ToPlayer("p1")))

	assert.Len(t, conn1.frames(), 1)
	assert.Len(t, conn2.frames(), 0)
}
