package router

import "errors"

var (
	// ErrUnknownSession is returned for any operation on a sessionID the
	// router has no bookkeeping for (never connected, or already
	// disconnected).
	ErrUnknownSession = errors.New("router: unknown session")
	// ErrAlreadyBound names a join attempted for a session already in
	// PhaseBound. The router never returns it: every message of a bound
	// session, a repeat Join included, is routed to the land instead.
	ErrAlreadyBound = errors.New("router: session already bound")
)

// Join-rejection reason strings sent back in JoinResponse.Reason. These are
// wire-visible constants, not Go errors.
const (
	ReasonHandshakeRequired = "handshake_required"
	ReasonInstanceNotFound  = "instance_not_found"
	ReasonInstanceRequired  = "instance_required"
	ReasonUnknownLandType   = "unknown_land_type"
	ReasonRateLimited       = "rate_limited"
)
