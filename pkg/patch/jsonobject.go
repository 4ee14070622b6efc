package patch

import "encoding/json"

// jsonPatchWire is the wire shape of one StatePatch in the jsonObject
// encoding: {"path":"...","op":"set"|"add"|"remove","value":...}.
type jsonPatchWire struct {
	Path  string      `json:"path"`
	Op    string      `json:"op"`
	Value interface{} `json:"value,omitempty"`
}

type jsonUpdateWire struct {
	Type    string          `json:"type"`
	Patches []jsonPatchWire `json:"patches,omitempty"`
}

func encodeJSONObject(update StateUpdate) ([]byte, error) {
	wire := jsonUpdateWire{Type: update.Kind.jsonName()}
	for _, p := range update.Patches {
		pw := jsonPatchWire{Path: p.Path, Op: p.Op.jsonName()}
		if p.Op != OpDelete {
			pw.Value = p.Value
		}
		wire.Patches = append(wire.Patches, pw)
	}
	return json.Marshal(wire)
}

// DecodeJSONObject decodes the jsonObject wire form produced by
// encodeJSONObject. It never consults a PathHasher or slot table: the
// jsonObject encoding always carries raw string paths; path-hash and
// dynamic-key compression only apply to the opcode-array encodings.
func DecodeJSONObject(data []byte) (StateUpdate, error) {
	var wire jsonUpdateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return StateUpdate{}, err
	}
	kind, err := kindFromJSONName(wire.Type)
	if err != nil {
		return StateUpdate{}, err
	}
	update := StateUpdate{Kind: kind}
	for _, pw := range wire.Patches {
		op, err := opFromJSONName(pw.Op)
		if err != nil {
			return StateUpdate{}, err
		}
		sp := StatePatch{Path: pw.Path, Op: op}
		if op != OpDelete {
			sp.Value = pw.Value
		}
		update.Patches = append(update.Patches, sp)
	}
	return update, nil
}
