package land

import "encoding/json"

// FieldScope tags a top-level state field as either shared across every
// joined player or private per player. SyncEngine consults this to decide
// how to project state for a given player.
type FieldScope int

const (
	// ScopeBroadcast fields are identical for every player.
	ScopeBroadcast FieldScope = iota
	// ScopePerPlayerSlice fields are map<PlayerID, V>; each player only
	// ever sees their own keyed slice.
	ScopePerPlayerSlice
)

// JoinDecision is returned by a CanJoin rule.
type JoinDecision struct {
	Allow    bool
	PlayerID PlayerID
	Reason   string
}

// Allowed constructs an allow decision for the given player.
func Allowed(playerID PlayerID) JoinDecision {
	return JoinDecision{Allow: true, PlayerID: playerID}
}

// Denied constructs a deny decision with a reason surfaced to the client.
func Denied(reason string) JoinDecision {
	return JoinDecision{Allow: false, Reason: reason}
}

// CanJoinFunc evaluates whether a session may join a land currently in the
// given state.
type CanJoinFunc[S any] func(state *S, session PlayerSession, ctx LandContext) JoinDecision

// JoinHookFunc runs after a join is admitted, mutating state in place.
type JoinHookFunc[S any] func(state *S, ctx LandContext)

// LeaveHookFunc runs when a player's last session disconnects (or is
// explicitly removed), mutating state in place.
type LeaveHookFunc[S any] func(state *S, ctx LandContext)

// DestroyHookFunc runs once, when the keeper is torn down.
type DestroyHookFunc[S any] func(state *S)

// ActionFunc type-dispatches an action request. It returns a response
// payload or an error; a returned error becomes ActionResponse.error and the
// scratch-state mutation is discarded.
type ActionFunc[S any] func(state *S, payload json.RawMessage, ctx LandContext) (interface{}, error)

// EventFunc type-dispatches a client event. It carries no response.
type EventFunc[S any] func(state *S, payload json.RawMessage, ctx LandContext)

// Definition is an opaque specification of a land type: an initial-state
// constructor, a rule set keyed by action/event type, join/leave/destroy
// hooks, and the per-field sync scope used by the SyncEngine.
//
// The zero value of each hook field is valid and treated as a no-op (for
// OnJoin/OnLeave/OnDestroy) or an always-allow rule (for CanJoin, when nil).
type Definition[S any] struct {
	NewState func() *S

	CanJoin   CanJoinFunc[S]
	OnJoin    JoinHookFunc[S]
	OnLeave   LeaveHookFunc[S]
	OnDestroy DestroyHookFunc[S]

	Actions map[string]ActionFunc[S]
	Events  map[string]EventFunc[S]

	// FieldScopes maps a top-level JSON field name (as it appears on the
	// wire) to its sync scope. Fields absent from this map default to
	// ScopeBroadcast.
	FieldScopes map[string]FieldScope
}

// ScopeOf returns the configured scope for a top-level field, defaulting to
// ScopeBroadcast when unconfigured.
func (d Definition[S]) ScopeOf(field string) FieldScope {
	if d.FieldScopes == nil {
		return ScopeBroadcast
	}
	if s, ok := d.FieldScopes[field]; ok {
		return s
	}
	return ScopeBroadcast
}

// evaluateCanJoin runs the configured CanJoin rule, defaulting to an
// always-allow decision using the session's PlayerID when the definition
// does not configure one.
func (d Definition[S]) evaluateCanJoin(state *S, session PlayerSession, ctx LandContext) JoinDecision {
	if d.CanJoin == nil {
		return Allowed(session.PlayerID)
	}
	return d.CanJoin(state, session, ctx)
}

// EvaluateCanJoin is the exported form used by the Keeper package (kept as a
// method so callers outside this package never need to nil-check CanJoin
// themselves).
func (d Definition[S]) EvaluateCanJoin(state *S, session PlayerSession, ctx LandContext) JoinDecision {
	return d.evaluateCanJoin(state, session, ctx)
}

// RunOnJoin invokes the OnJoin hook if configured.
func (d Definition[S]) RunOnJoin(state *S, ctx LandContext) {
	if d.OnJoin != nil {
		d.OnJoin(state, ctx)
	}
}

// RunOnLeave invokes the OnLeave hook if configured.
func (d Definition[S]) RunOnLeave(state *S, ctx LandContext) {
	if d.OnLeave != nil {
		d.OnLeave(state, ctx)
	}
}

// RunOnDestroy invokes the OnDestroy hook if configured.
func (d Definition[S]) RunOnDestroy(state *S) {
	if d.OnDestroy != nil {
		d.OnDestroy(state)
	}
}
