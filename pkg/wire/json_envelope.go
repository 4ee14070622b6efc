package wire

import (
	"encoding/json"
	"fmt"
)

// jsonEnvelope is the jsonObject wire shape: {"type": "...", ...fields}.
// Exactly one of the pointer fields is populated per message.
type jsonEnvelope struct {
	Type string `json:"type"`

	Join           *JoinRequest    `json:"join,omitempty"`
	JoinResponse   *JoinResponse   `json:"joinResponse,omitempty"`
	Action         *ActionRequest  `json:"action,omitempty"`
	ActionResponse *ActionResponse `json:"actionResponse,omitempty"`
	Event          *EventMessage   `json:"event,omitempty"`
}

func (c *Codec) decodeJSON(data []byte) (Message, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("wire: decode error: %w", err)
	}
	switch env.Type {
	case "join":
		if env.Join == nil {
			return Message{}, fmt.Errorf("wire: join envelope missing join field")
		}
		return Message{Kind: KindJoin, Join: env.Join}, nil
	case "action":
		if env.Action == nil {
			return Message{}, fmt.Errorf("wire: action envelope missing action field")
		}
		return Message{Kind: KindAction, Action: env.Action}, nil
	case "event":
		if env.Event == nil {
			return Message{}, fmt.Errorf("wire: event envelope missing event field")
		}
		return Message{Kind: KindEvent, Event: env.Event}, nil
	default:
		return Message{}, fmt.Errorf("wire: unknown message type %q", env.Type)
	}
}
