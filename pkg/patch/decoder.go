package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Decoder is the client-side counterpart to Encoder: it resolves bare slot
// references back into dynamic-key strings using the definitions it has
// seen so far, per scope. Used by this module's own round-trip tests and
// available to a real client implementation written against this package.
type Decoder struct {
	format Format
	hasher *PathHasher

	mu     sync.Mutex
	tables map[string]map[int32]string
}

// NewDecoder constructs a Decoder matching the given Encoder configuration.
func NewDecoder(format Format, hasher *PathHasher) *Decoder {
	return &Decoder{format: format, hasher: hasher, tables: make(map[string]map[int32]string)}
}

func (d *Decoder) tableFor(scope Scope) map[int32]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := scope.key()
	t, ok := d.tables[key]
	if !ok {
		t = make(map[int32]string)
		d.tables[key] = t
	}
	return t
}

// DecodeUpdate decodes data produced by the matching Encoder for scope.
func (d *Decoder) DecodeUpdate(data []byte, scope Scope) (StateUpdate, error) {
	switch d.format {
	case FormatJSONObject:
		return DecodeJSONObject(data)
	case FormatOpcodeJSONArray:
		var raw []interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return StateUpdate{}, err
		}
		return d.decodeOpcodeArray(raw, scope)
	case FormatOpcodeMessagePack:
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		raw, err := dec.DecodeInterface()
		if err != nil {
			return StateUpdate{}, err
		}
		arr, ok := raw.([]interface{})
		if !ok {
			return StateUpdate{}, fmt.Errorf("patch: msgpack payload is not an array")
		}
		return d.decodeOpcodeArray(arr, scope)
	default:
		return StateUpdate{}, fmt.Errorf("patch: unknown decoder format %d", d.format)
	}
}

func (d *Decoder) decodeOpcodeArray(raw []interface{}, scope Scope) (StateUpdate, error) {
	if len(raw) == 0 {
		return StateUpdate{}, fmt.Errorf("patch: empty opcode array")
	}
	kindN, ok := toInt(raw[0])
	if !ok {
		return StateUpdate{}, fmt.Errorf("patch: update opcode is not a number")
	}
	kind, err := kindFromOpcode(int(kindN))
	if err != nil {
		return StateUpdate{}, err
	}

	update := StateUpdate{Kind: kind}
	for _, rawPatch := range raw[1:] {
		patchArr, ok := rawPatch.([]interface{})
		if !ok || len(patchArr) < 2 {
			return StateUpdate{}, fmt.Errorf("patch: malformed patch entry")
		}
		opN, ok := toInt(patchArr[1])
		if !ok {
			return StateUpdate{}, fmt.Errorf("patch: patch opcode is not a number")
		}
		op, err := opFromOpcode(int(opN))
		if err != nil {
			return StateUpdate{}, err
		}

		path, err := d.resolvePathRepr(patchArr[0], scope)
		if err != nil {
			return StateUpdate{}, err
		}

		sp := StatePatch{Path: path, Op: op}
		if len(patchArr) >= 3 {
			sp.Value = patchArr[2]
		}
		update.Patches = append(update.Patches, sp)
	}
	return update, nil
}

func (d *Decoder) resolvePathRepr(pathRepr interface{}, scope Scope) (string, error) {
	if d.hasher == nil {
		s, ok := pathRepr.(string)
		if !ok {
			return "", fmt.Errorf("patch: path representation is not a string")
		}
		return s, nil
	}

	reprArr, ok := pathRepr.([]interface{})
	if !ok || len(reprArr) != 2 {
		return "", fmt.Errorf("patch: hashed path representation malformed")
	}
	hashN, ok := toInt(reprArr[0])
	if !ok {
		return "", fmt.Errorf("patch: path hash is not a number")
	}

	table := d.tableFor(scope)
	var dynKeys []string

	var dynRaw []interface{}
	switch v := reprArr[1].(type) {
	case nil:
		dynRaw = nil
	case []interface{}:
		dynRaw = v
	default:
		return "", fmt.Errorf("patch: dynamic-key list malformed")
	}

	for _, item := range dynRaw {
		switch v := item.(type) {
		case []interface{}:
			if len(v) != 2 {
				return "", fmt.Errorf("patch: dynamic-key definition malformed")
			}
			slotN, ok := toInt(v[0])
			if !ok {
				return "", fmt.Errorf("patch: dynamic-key slot is not a number")
			}
			str, ok := v[1].(string)
			if !ok {
				return "", fmt.Errorf("patch: dynamic-key definition value is not a string")
			}
			d.mu.Lock()
			table[int32(slotN)] = str
			d.mu.Unlock()
			dynKeys = append(dynKeys, str)
		default:
			slotN, ok := toInt(v)
			if !ok {
				return "", fmt.Errorf("patch: dynamic-key reference is not a number")
			}
			d.mu.Lock()
			str, known := table[int32(slotN)]
			d.mu.Unlock()
			if !known {
				return "", fmt.Errorf("patch: unknown dynamic-key slot %d referenced before definition", slotN)
			}
			dynKeys = append(dynKeys, str)
		}
	}

	return d.hasher.Rebuild(uint32(hashN), dynKeys)
}

// toInt normalizes the assorted numeric types json/msgpack decode interface
// values into, returning (n, true) on success.
func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}
