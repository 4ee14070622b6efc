package wire

import (
	"encoding/json"
	"fmt"

	"github.com/opd-ai/landkeep/pkg/patch"
)

// EncodeActionRequest encodes an ActionRequest using the codec's format.
// Servers decode these via Decode/Codec.decodeActionRequestArray; this
// encoder exists for test clients and round-trip verification.
func (c *Codec) EncodeActionRequest(req ActionRequest) ([]byte, error) {
	switch c.Format {
	case patch.FormatJSONObject:
		return json.Marshal(jsonEnvelope{Type: "action", Action: &req})
	case patch.FormatOpcodeJSONArray:
		arr, err := c.actionRequestArray(req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(arr)
	case patch.FormatOpcodeMessagePack:
		arr, err := c.actionRequestArray(req)
		if err != nil {
			return nil, err
		}
		return patch.EncodeMsgpackValue(arr)
	default:
		return nil, fmt.Errorf("wire: unknown format %d", c.Format)
	}
}

// DecodeJoinResponse decodes a server-emitted JoinResponse, for test clients.
func (c *Codec) DecodeJoinResponse(data []byte) (JoinResponse, error) {
	switch c.Format {
	case patch.FormatJSONObject:
		var env jsonEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return JoinResponse{}, err
		}
		if env.JoinResponse == nil {
			return JoinResponse{}, fmt.Errorf("wire: envelope missing joinResponse field")
		}
		return *env.JoinResponse, nil
	case patch.FormatOpcodeJSONArray:
		var raw []interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return JoinResponse{}, err
		}
		return decodeJoinResponseArray(raw)
	case patch.FormatOpcodeMessagePack:
		v, err := patch.DecodeMsgpackValue(data)
		if err != nil {
			return JoinResponse{}, err
		}
		arr, ok := v.([]interface{})
		if !ok {
			return JoinResponse{}, fmt.Errorf("wire: msgpack payload is not an array")
		}
		return decodeJoinResponseArray(arr)
	default:
		return JoinResponse{}, fmt.Errorf("wire: unknown format %d", c.Format)
	}
}

// DecodeActionResponse decodes a server-emitted ActionResponse, for test
// clients.
func (c *Codec) DecodeActionResponse(data []byte) (ActionResponse, error) {
	switch c.Format {
	case patch.FormatJSONObject:
		var env jsonEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return ActionResponse{}, err
		}
		if env.ActionResponse == nil {
			return ActionResponse{}, fmt.Errorf("wire: envelope missing actionResponse field")
		}
		return *env.ActionResponse, nil
	case patch.FormatOpcodeJSONArray:
		var raw []interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return ActionResponse{}, err
		}
		return decodeActionResponseArray(raw)
	case patch.FormatOpcodeMessagePack:
		v, err := patch.DecodeMsgpackValue(data)
		if err != nil {
			return ActionResponse{}, err
		}
		arr, ok := v.([]interface{})
		if !ok {
			return ActionResponse{}, fmt.Errorf("wire: msgpack payload is not an array")
		}
		return decodeActionResponseArray(arr)
	default:
		return ActionResponse{}, fmt.Errorf("wire: unknown format %d", c.Format)
	}
}

// DecodeEvent decodes a server-emitted EventMessage (fromServer), for test
// clients observing server-pushed events.
func (c *Codec) DecodeEvent(data []byte) (EventMessage, error) {
	msg, err := c.Decode(data)
	if err != nil {
		return EventMessage{}, err
	}
	if msg.Kind != KindEvent || msg.Event == nil {
		return EventMessage{}, fmt.Errorf("wire: message is not an event")
	}
	return *msg.Event, nil
}
