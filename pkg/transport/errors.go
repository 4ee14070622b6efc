package transport

import "errors"

var (
	// ErrUnknownSession is returned when a message/disconnect arrives for a
	// sessionID the adapter has no bookkeeping for (already removed, or
	// never joined).
	ErrUnknownSession = errors.New("transport: unknown session")
	// ErrUnrecognizedMessage is returned (and reported to the client as an
	// unknown_message error event) when a decoded message is of a kind
	// OnMessage has no case for. Codec.Decode reports an unrecognised type or
	// opcode as a decode error instead, so such a message gets the wrapped
	// decode error and no reply.
	ErrUnrecognizedMessage = errors.New("transport: unrecognized message kind")
)

// JoinDeniedError wraps a CanJoin denial with the reason string surfaced to
// the client in JoinResponse.reason.
type JoinDeniedError struct {
	Reason string
}

func (e *JoinDeniedError) Error() string {
	return "transport: join denied: " + e.Reason
}
