package wire

import (
	"encoding/json"
	"fmt"

	"github.com/opd-ai/landkeep/pkg/patch"
)

// Codec is the per-land wire codec for transport-message envelopes. Format
// selects jsonObject, opcodeJsonArray, or opcodeMessagePack for everything
// except inbound handshake decoding, which is always JSON.
type Codec struct {
	Format patch.Format

	// EventCodes optionally maps a registered event type string to a stable
	// integer opcode; unregistered types remain strings on the wire.
	EventCodes map[string]int

	// PayloadFieldOrder optionally enables positional-array encoding of an
	// action/event payload's fields, keyed by the action/event type
	// identifier. Only consulted for the opcode-array encodings; jsonObject
	// always uses named objects.
	PayloadFieldOrder map[string][]string
}

// NewCodec constructs a Codec for the given format.
func NewCodec(format patch.Format) *Codec {
	return &Codec{Format: format, EventCodes: map[string]int{}}
}

func (c *Codec) eventOpcode(name string) (int, bool) {
	op, ok := c.EventCodes[name]
	return op, ok
}

func (c *Codec) eventNameForOpcode(op int) (string, bool) {
	for name, code := range c.EventCodes {
		if code == op {
			return name, true
		}
	}
	return "", false
}

// DecodeJoinRequest decodes a handshake join message. Always JSON regardless
// of the codec's configured Format. A join carries no envelope or type
// discriminator on the wire, so any other message kind sent during the
// handshake (an Action/Event in the {"type":"...", ...} envelope shape, for
// instance) is syntactically a valid JSON object but unmarshals into a
// JoinRequest with every field left at its zero value; requestId and
// landType are always populated on a real join, so their absence is treated
// as a decode failure rather than a zero-value join.
func DecodeJoinRequest(data []byte) (JoinRequest, error) {
	var jr JoinRequest
	if err := json.Unmarshal(data, &jr); err != nil {
		return JoinRequest{}, fmt.Errorf("wire: decode join request: %w", err)
	}
	if jr.RequestID == "" || jr.LandType == "" {
		return JoinRequest{}, fmt.Errorf("wire: decode join request: missing requestId or landType")
	}
	return jr, nil
}

// EncodeJoinResponseJSON encodes resp as JSON unconditionally, used for the
// handshake error/denial path which must stay JSON even on a binary land.
func EncodeJoinResponseJSON(resp JoinResponse) ([]byte, error) {
	return json.Marshal(jsonEnvelope{Type: "joinResponse", JoinResponse: &resp})
}

// EncodeJoinResponse encodes resp using the codec's configured format (the
// success path; join/joinResponse always use positional form in
// opcode-array encoding).
func (c *Codec) EncodeJoinResponse(resp JoinResponse) ([]byte, error) {
	switch c.Format {
	case patch.FormatJSONObject:
		return json.Marshal(jsonEnvelope{Type: "joinResponse", JoinResponse: &resp})
	case patch.FormatOpcodeJSONArray:
		arr := c.joinResponseArray(resp)
		return json.Marshal(arr)
	case patch.FormatOpcodeMessagePack:
		arr := c.joinResponseArray(resp)
		return patch.EncodeMsgpackValue(arr)
	default:
		return nil, fmt.Errorf("wire: unknown format %d", c.Format)
	}
}

// EncodeActionResponse encodes an ActionResponse using the codec's format.
func (c *Codec) EncodeActionResponse(resp ActionResponse) ([]byte, error) {
	switch c.Format {
	case patch.FormatJSONObject:
		return json.Marshal(jsonEnvelope{Type: "actionResponse", ActionResponse: &resp})
	case patch.FormatOpcodeJSONArray:
		arr, err := c.actionResponseArray(resp)
		if err != nil {
			return nil, err
		}
		return json.Marshal(arr)
	case patch.FormatOpcodeMessagePack:
		arr, err := c.actionResponseArray(resp)
		if err != nil {
			return nil, err
		}
		return patch.EncodeMsgpackValue(arr)
	default:
		return nil, fmt.Errorf("wire: unknown format %d", c.Format)
	}
}

// EncodeEvent encodes an EventMessage using the codec's format.
func (c *Codec) EncodeEvent(ev EventMessage) ([]byte, error) {
	switch c.Format {
	case patch.FormatJSONObject:
		return json.Marshal(jsonEnvelope{Type: "event", Event: &ev})
	case patch.FormatOpcodeJSONArray:
		arr, err := c.eventArray(ev)
		if err != nil {
			return nil, err
		}
		return json.Marshal(arr)
	case patch.FormatOpcodeMessagePack:
		arr, err := c.eventArray(ev)
		if err != nil {
			return nil, err
		}
		return patch.EncodeMsgpackValue(arr)
	default:
		return nil, fmt.Errorf("wire: unknown format %d", c.Format)
	}
}

// Decode decodes an inbound (client-to-server) message under the codec's
// configured format. A Join message is only ever decoded via
// DecodeJoinRequest during handshake; once bound, a land never expects
// opcode 104 again (a repeat join is handled by the adapter as idempotent).
func (c *Codec) Decode(data []byte) (Message, error) {
	switch c.Format {
	case patch.FormatJSONObject:
		return c.decodeJSON(data)
	case patch.FormatOpcodeJSONArray:
		var raw []interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return Message{}, fmt.Errorf("wire: decode error: %w", err)
		}
		return c.decodeArray(raw)
	case patch.FormatOpcodeMessagePack:
		v, err := patch.DecodeMsgpackValue(data)
		if err != nil {
			return Message{}, fmt.Errorf("wire: decode error: %w", err)
		}
		arr, ok := v.([]interface{})
		if !ok {
			return Message{}, fmt.Errorf("wire: msgpack payload is not an array")
		}
		return c.decodeArray(arr)
	default:
		return Message{}, fmt.Errorf("wire: unknown format %d", c.Format)
	}
}
