package land

import "errors"

// Sentinel errors shared across the Keeper/Adapter/Router/Realm boundary.
var (
	ErrLandDestroyed    = errors.New("land: keeper has been destroyed")
	ErrJoinDenied       = errors.New("land: join denied")
	ErrNotJoined        = errors.New("land: session is not joined")
	ErrUnknownAction    = errors.New("land: unknown action type")
	ErrUnknownEvent     = errors.New("land: unknown event type")
	ErrLandNotFound     = errors.New("land: instance not found")
	ErrInstanceRequired = errors.New("land: instance id required")
	ErrUnknownLandType  = errors.New("land: unregistered land type")
)
