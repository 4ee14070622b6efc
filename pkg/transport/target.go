package transport

import "github.com/opd-ai/landkeep/pkg/land"

// TargetKind selects which sessions a sendEvent call reaches.
type TargetKind int

const (
	TargetPlayer TargetKind = iota
	TargetSession
	TargetBroadcast
	TargetBroadcastExcept
)

// Target names the recipients of a server-pushed event.
type Target struct {
	Kind           TargetKind
	PlayerID       land.PlayerID
	SessionID      land.SessionID
	ExceptPlayerID land.PlayerID
}

// ToPlayer targets every session currently owned by playerID.
func ToPlayer(playerID land.PlayerID) Target {
	return Target{Kind: TargetPlayer, PlayerID: playerID}
}

// ToSession targets exactly one session.
func ToSession(sessionID land.SessionID) Target {
	return Target{Kind: TargetSession, SessionID: sessionID}
}

// Broadcast targets every connected session in the land.
func Broadcast() Target {
	return Target{Kind: TargetBroadcast}
}

// BroadcastExcept targets every connected session except those owned by
// exceptPlayerID (e.g. "notify everyone but the actor who caused this").
func BroadcastExcept(exceptPlayerID land.PlayerID) Target {
	return Target{Kind: TargetBroadcastExcept, ExceptPlayerID: exceptPlayerID}
}
