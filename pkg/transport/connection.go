// Package transport implements the TransportAdapter: the
// per-land actor that owns session/player bookkeeping, dispatches inbound
// wire messages to a LandKeeper, and fans out state-update and event
// traffic back out over Connection.send. It is the only component that
// touches concrete socket I/O, and only through the Connection interface —
// the actual transport (websocket, in-process test harness, ...) is a
// caller-supplied collaborator.
package transport

import "context"

// ConnectionCloseReason tags why a Connection was closed, so the concrete
// transport can choose an appropriate close frame/status.
type ConnectionCloseReason int

const (
	// CloseNormal is an ordinary client-initiated or graceful disconnect.
	CloseNormal ConnectionCloseReason = iota
	// CloseKicked is used when a newer session for the same player displaces
	// this one under the kick-old duplicate-login policy.
	CloseKicked
	// CloseError marks a connection torn down because of an error. The
	// adapter never closes with it; the only close it makes is CloseKicked.
	CloseError
)

func (r ConnectionCloseReason) String() string {
	switch r {
	case CloseNormal:
		return "normal"
	case CloseKicked:
		return "kicked"
	case CloseError:
		return "error"
	default:
		return "unknown"
	}
}

// Connection is the minimal socket-I/O surface the adapter depends on. A
// concrete websocket/SSE/testing implementation adapts its own connection
// type to this interface; the adapter never imports a transport-specific
// package directly.
type Connection interface {
	// Send writes one already-encoded wire message. Implementations should
	// treat this as best-effort and return promptly; the adapter wraps every
	// call in a circuit breaker so a wedged peer cannot stall a broadcast
	// fan-out indefinitely.
	Send(ctx context.Context, data []byte) error
	// Close closes the underlying connection with the given reason.
	Close(reason ConnectionCloseReason) error
}
