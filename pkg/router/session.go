package router

import (
	"sync"

	"github.com/opd-ai/landkeep/pkg/land"
	"github.com/opd-ai/landkeep/pkg/transport"
)

// Phase is a connection's handshake state.
type Phase int

const (
	// PhaseHandshake is the state from onConnect until a successful join;
	// only a Join message is accepted.
	PhaseHandshake Phase = iota
	// PhaseBound means the session is permanently attached to one LandID
	// for the rest of its lifetime.
	PhaseBound
)

// sessionState is the Router's per-connection bookkeeping. It never outlives
// one connection: a reconnect gets a fresh sessionID and a fresh state.
type sessionState struct {
	mu sync.RWMutex

	phase    Phase
	conn     transport.Connection
	clientID land.ClientID
	auth     *land.AuthenticatedInfo
	landID   land.LandID
}

func newSessionState(conn transport.Connection, clientID land.ClientID, auth *land.AuthenticatedInfo) *sessionState {
	return &sessionState{
		phase:    PhaseHandshake,
		conn:     conn,
		clientID: clientID,
		auth:     auth,
	}
}

func (s *sessionState) bind(landID land.LandID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseBound
	s.landID = landID
}

func (s *sessionState) snapshot() (Phase, land.LandID, transport.Connection, land.ClientID, *land.AuthenticatedInfo) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase, s.landID, s.conn, s.clientID, s.auth
}
