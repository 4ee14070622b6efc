package land

// PlayerSession is the principal identity used during join-admission: the
// resolved (playerID, deviceID, metadata) a Router hands to a
// TransportAdapter before the Keeper evaluates CanJoin.
type PlayerSession struct {
	PlayerID PlayerID
	DeviceID ClientID
	Metadata map[string]string
}

// AuthenticatedInfo is the optional upstream-verified principal produced by
// an authentication middleware external to this module. Its absence means
// guest mode.
type AuthenticatedInfo struct {
	PlayerID PlayerID
	DeviceID ClientID
	Metadata map[string]string
}

// LandContext is passed to every rule invocation. Metadata is the merged
// view of auth-info and join-message metadata (join-message wins on key
// collision, see ResolveSession).
type LandContext struct {
	PlayerID PlayerID
	DeviceID ClientID
	Metadata map[string]string
	Services interface{}
}

// GuestSession is the default identity factory used when a join carries no
// explicit playerID/deviceID and no AuthenticatedInfo is present.
//
// playerID = sessionID, deviceID = clientID, metadata = {"isGuest":"true"}.
func GuestSession(sessionID SessionID, clientID ClientID) PlayerSession {
	return PlayerSession{
		PlayerID: PlayerID(sessionID),
		DeviceID: clientID,
		Metadata: map[string]string{"isGuest": "true"},
	}
}

// ResolveSession applies the precedence rule for session identity: join-message
// fields win over authInfo fields, which win over the guest-session factory. Metadata
// maps are merged key-by-key with the same precedence, join-message
// metadata winning collisions against authInfo metadata.
func ResolveSession(sessionID SessionID, clientID ClientID, joinPlayerID *PlayerID, joinDeviceID *ClientID, joinMetadata map[string]string, auth *AuthenticatedInfo) PlayerSession {
	guest := GuestSession(sessionID, clientID)

	playerID := guest.PlayerID
	deviceID := guest.DeviceID
	merged := map[string]string{}

	if auth != nil {
		if auth.PlayerID != "" {
			playerID = auth.PlayerID
		}
		if auth.DeviceID != "" {
			deviceID = auth.DeviceID
		}
		for k, v := range auth.Metadata {
			merged[k] = v
		}
	} else {
		for k, v := range guest.Metadata {
			merged[k] = v
		}
	}

	if joinPlayerID != nil && *joinPlayerID != "" {
		playerID = *joinPlayerID
	}
	if joinDeviceID != nil && *joinDeviceID != "" {
		deviceID = *joinDeviceID
	}
	for k, v := range joinMetadata {
		merged[k] = v
	}

	return PlayerSession{PlayerID: playerID, DeviceID: deviceID, Metadata: merged}
}
