// Package wire implements the transport-message envelope:
// Join/JoinResponse/Action/ActionResponse/Event, across the same three
// coexisting encodings as pkg/patch (jsonObject, opcodeJsonArray,
// opcodeMessagePack). It is the outermost envelope for these messages;
// pkg/patch's StateUpdate is not carried inside one but sent in a frame of
// its own (see pkg/transport's framing.go).
package wire

import "encoding/json"

// Wire opcodes, stable across releases.
const (
	OpcodeAction         = 101
	OpcodeActionResponse = 102
	OpcodeEvent          = 103
	OpcodeJoin           = 104
	OpcodeJoinResponse   = 105
)

// EventDirection distinguishes a client-originated from a server-originated
// event inside the same envelope shape.
type EventDirection int

const (
	DirectionFromClient EventDirection = 0
	DirectionFromServer EventDirection = 1
)

// JoinRequest is the handshake-phase join message. It is always decoded as
// JSON regardless of the land's configured wire format.
type JoinRequest struct {
	RequestID      string            `json:"requestId"`
	LandType       string            `json:"landType"`
	LandInstanceID *string           `json:"landInstanceId,omitempty"`
	PlayerID       *string           `json:"playerId,omitempty"`
	DeviceID       *string           `json:"deviceId,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// JoinResponse answers a JoinRequest. On success path it is encoded with the
// land's configured format; on denial/handshake-error it is always JSON.
type JoinResponse struct {
	RequestID  string  `json:"requestId"`
	Success    bool    `json:"success"`
	PlayerID   string  `json:"playerId,omitempty"`
	LandID     string  `json:"landId,omitempty"`
	PlayerSlot *uint16 `json:"playerSlot,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// ActionRequest is a client-submitted action (opcode 101).
type ActionRequest struct {
	RequestID      string          `json:"requestId"`
	TypeIdentifier string          `json:"typeIdentifier"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// ActionResponse answers an ActionRequest (opcode 102).
type ActionResponse struct {
	RequestID string          `json:"requestId"`
	Response  json.RawMessage `json:"response,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// EventMessage carries a client or server event (opcode 103).
type EventMessage struct {
	Direction      EventDirection  `json:"direction"`
	TypeOrOpcode   string          `json:"typeOrOpcode"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// MessageKind tags which envelope a decoded inbound Message carries.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindJoin
	KindAction
	KindEvent
)

// Message is the decoded form of an inbound (client-to-server) envelope:
// exactly one of Join/Action/Event is populated according to Kind.
type Message struct {
	Kind   MessageKind
	Join   *JoinRequest
	Action *ActionRequest
	Event  *EventMessage
}
