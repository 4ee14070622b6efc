// Package land defines the core data model shared by every component of the
// runtime: stable identifiers, the per-land rule surface (LandDefinition),
// and the per-connection identity carried into rule bodies (LandContext).
package land

import "fmt"

// SessionID identifies one live connection. A session exists from connect to
// disconnect; it never survives a reconnect.
type SessionID string

// ClientID identifies a stable client device/key. Unlike SessionID it
// survives reconnect of the same client.
type ClientID string

// PlayerID identifies a logical actor inside a land. One player may have
// several concurrent sessions (e.g. two browser tabs).
type PlayerID string

// LandID names one land instance: a land type plus an instance id within
// that type.
type LandID struct {
	LandType   string
	InstanceID string
}

// String renders the LandID the way it is sent on the wire: "type:instance".
func (l LandID) String() string {
	return fmt.Sprintf("%s:%s", l.LandType, l.InstanceID)
}

// IsZero reports whether l is the zero LandID.
func (l LandID) IsZero() bool {
	return l.LandType == "" && l.InstanceID == ""
}
