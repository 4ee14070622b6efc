package wire

import (
	"encoding/json"
	"fmt"
)

// encodePayloadValue converts a raw JSON payload into the wire value for the
// opcode-array encodings: a positional array when the codec has a
// PayloadFieldOrder entry for typeIdentifier, otherwise the payload's own
// object/array/scalar shape.
func (c *Codec) encodePayloadValue(typeIdentifier string, payload json.RawMessage) (interface{}, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("wire: decode payload: %w", err)
	}

	fields, ok := c.PayloadFieldOrder[typeIdentifier]
	if !ok {
		return v, nil
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return v, nil
	}
	arr := make([]interface{}, len(fields))
	for i, f := range fields {
		arr[i] = obj[f]
	}
	return arr, nil
}

// decodePayloadValue reverses encodePayloadValue.
func (c *Codec) decodePayloadValue(typeIdentifier string, raw interface{}) (json.RawMessage, error) {
	if raw == nil {
		return nil, nil
	}
	if fields, ok := c.PayloadFieldOrder[typeIdentifier]; ok {
		if arr, ok := raw.([]interface{}); ok {
			obj := make(map[string]interface{}, len(fields))
			for i, f := range fields {
				if i < len(arr) {
					obj[f] = arr[i]
				}
			}
			return json.Marshal(obj)
		}
	}
	return json.Marshal(raw)
}

func (c *Codec) joinResponseArray(resp JoinResponse) []interface{} {
	success := 0
	if resp.Success {
		success = 1
	}
	arr := []interface{}{OpcodeJoinResponse, resp.RequestID, success}
	arr = append(arr, resp.PlayerID, resp.LandID, resp.PlayerSlot, resp.Reason)
	return arr
}

func decodeJoinResponseArray(raw []interface{}) (JoinResponse, error) {
	if len(raw) < 3 {
		return JoinResponse{}, fmt.Errorf("wire: malformed joinResponse array")
	}
	n, ok := toNumber(raw[2])
	if !ok {
		return JoinResponse{}, fmt.Errorf("wire: joinResponse success flag is not a number")
	}
	resp := JoinResponse{RequestID: asString(raw[1]), Success: n != 0}
	if len(raw) > 3 {
		resp.PlayerID = asString(raw[3])
	}
	if len(raw) > 4 {
		resp.LandID = asString(raw[4])
	}
	if len(raw) > 5 {
		if n, ok := toNumber(raw[5]); ok {
			slot := uint16(n)
			resp.PlayerSlot = &slot
		}
	}
	if len(raw) > 6 {
		resp.Reason = asString(raw[6])
	}
	return resp, nil
}

func (c *Codec) actionRequestArray(req ActionRequest) ([]interface{}, error) {
	payload, err := c.encodePayloadValue(req.TypeIdentifier, req.Payload)
	if err != nil {
		return nil, err
	}
	return []interface{}{OpcodeAction, req.RequestID, req.TypeIdentifier, payload}, nil
}

func (c *Codec) decodeActionRequestArray(raw []interface{}) (ActionRequest, error) {
	if len(raw) < 3 {
		return ActionRequest{}, fmt.Errorf("wire: malformed action array")
	}
	req := ActionRequest{RequestID: asString(raw[1]), TypeIdentifier: asString(raw[2])}
	if len(raw) > 3 {
		payload, err := c.decodePayloadValue(req.TypeIdentifier, raw[3])
		if err != nil {
			return ActionRequest{}, err
		}
		req.Payload = payload
	}
	return req, nil
}

func (c *Codec) actionResponseArray(resp ActionResponse) ([]interface{}, error) {
	var payload interface{}
	if resp.Error != "" {
		payload = map[string]interface{}{"error": resp.Error}
	} else if len(resp.Response) > 0 {
		var v interface{}
		if err := json.Unmarshal(resp.Response, &v); err != nil {
			return nil, fmt.Errorf("wire: decode action response: %w", err)
		}
		payload = v
	}
	return []interface{}{OpcodeActionResponse, resp.RequestID, payload}, nil
}

func decodeActionResponseArray(raw []interface{}) (ActionResponse, error) {
	if len(raw) < 2 {
		return ActionResponse{}, fmt.Errorf("wire: malformed actionResponse array")
	}
	resp := ActionResponse{RequestID: asString(raw[1])}
	if len(raw) > 2 && raw[2] != nil {
		if obj, ok := raw[2].(map[string]interface{}); ok {
			if errMsg, ok := obj["error"].(string); ok && len(obj) == 1 {
				resp.Error = errMsg
				return resp, nil
			}
		}
		data, err := json.Marshal(raw[2])
		if err != nil {
			return ActionResponse{}, err
		}
		resp.Response = data
	}
	return resp, nil
}

func (c *Codec) eventArray(ev EventMessage) ([]interface{}, error) {
	var typeOrOpcode interface{} = ev.TypeOrOpcode
	if op, ok := c.eventOpcode(ev.TypeOrOpcode); ok {
		typeOrOpcode = op
	}
	payload, err := c.encodePayloadValue(ev.TypeOrOpcode, ev.Payload)
	if err != nil {
		return nil, err
	}
	return []interface{}{OpcodeEvent, int(ev.Direction), typeOrOpcode, payload}, nil
}

func (c *Codec) decodeEventArray(raw []interface{}) (EventMessage, error) {
	if len(raw) < 3 {
		return EventMessage{}, fmt.Errorf("wire: malformed event array")
	}
	dirN, ok := toNumber(raw[1])
	if !ok {
		return EventMessage{}, fmt.Errorf("wire: event direction is not a number")
	}
	ev := EventMessage{Direction: EventDirection(int(dirN))}

	switch t := raw[2].(type) {
	case string:
		ev.TypeOrOpcode = t
	default:
		n, ok := toNumber(t)
		if !ok {
			return EventMessage{}, fmt.Errorf("wire: event typeOrOpcode is neither string nor number")
		}
		name, ok := c.eventNameForOpcode(int(n))
		if !ok {
			return EventMessage{}, fmt.Errorf("wire: unregistered event opcode %d", int(n))
		}
		ev.TypeOrOpcode = name
	}

	if len(raw) > 3 {
		payload, err := c.decodePayloadValue(ev.TypeOrOpcode, raw[3])
		if err != nil {
			return EventMessage{}, err
		}
		ev.Payload = payload
	}
	return ev, nil
}

func (c *Codec) decodeArray(raw []interface{}) (Message, error) {
	if len(raw) == 0 {
		return Message{}, fmt.Errorf("wire: empty message array")
	}
	opN, ok := toNumber(raw[0])
	if !ok {
		return Message{}, fmt.Errorf("wire: message opcode is not a number")
	}
	switch int(opN) {
	case OpcodeAction:
		req, err := c.decodeActionRequestArray(raw)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindAction, Action: &req}, nil
	case OpcodeEvent:
		ev, err := c.decodeEventArray(raw)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindEvent, Event: &ev}, nil
	case OpcodeJoin:
		return Message{}, fmt.Errorf("wire: join must be decoded as JSON during handshake, not opcode-array")
	default:
		return Message{}, fmt.Errorf("wire: unknown message opcode %d", int(opN))
	}
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
