package land

import "time"

// PlayerRecord is the Keeper's bookkeeping entry for one joined player.
type PlayerRecord struct {
	ClientID  ClientID
	SessionID SessionID
	JoinedAt  time.Time
}
