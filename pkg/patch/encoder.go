package patch

import (
	"fmt"
	"sync"
)

// Format names one of the three coexisting wire encodings.
type Format int

const (
	FormatJSONObject Format = iota
	FormatOpcodeJSONArray
	FormatOpcodeMessagePack
)

// Encoder serializes StateUpdate values for one land. It owns the
// dynamic-key slot tables (one shared broadcast table, one per player),
// actor-local to whichever TransportAdapter constructs it.
type Encoder struct {
	format Format
	hasher *PathHasher

	mu     sync.Mutex
	tables map[string]*SlotTable
}

// NewEncoder constructs an Encoder for one land. hasher may be nil, in
// which case opcode variants fall back to raw string paths (no path-hash
// compression, but dynamic-key slot compression still does not apply since
// there are no wildcard positions to extract).
func NewEncoder(format Format, hasher *PathHasher) *Encoder {
	return &Encoder{format: format, hasher: hasher, tables: make(map[string]*SlotTable)}
}

func (e *Encoder) tableFor(scope Scope) *SlotTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := scope.key()
	t, ok := e.tables[key]
	if !ok {
		t = NewSlotTable()
		e.tables[key] = t
	}
	return t
}

// DropPlayerScope discards the perPlayer slot table for a disconnected
// player; a later reconnect starts from an empty table, consistent with
// SyncEngine.clearCacheForDisconnectedPlayer also forcing a fresh firstSync.
func (e *Encoder) DropPlayerScope(playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.tables, PlayerScope(playerID).key())
}

// EncodeUpdate serializes update for the given recipient scope.
func (e *Encoder) EncodeUpdate(update StateUpdate, scope Scope) ([]byte, error) {
	switch e.format {
	case FormatJSONObject:
		return encodeJSONObject(update)
	case FormatOpcodeJSONArray:
		return e.encodeOpcodeArray(update, scope, wireJSON)
	case FormatOpcodeMessagePack:
		return e.encodeOpcodeArray(update, scope, wireMsgpack)
	default:
		return nil, fmt.Errorf("patch: unknown encoder format %d", e.format)
	}
}

type wireCodec int

const (
	wireJSON wireCodec = iota
	wireMsgpack
)

// preparedPatch is the encoding-agnostic intermediate form shared by both
// opcode encodings.
type preparedPatch struct {
	pathRepr interface{} // string, or [hash uint32, dynamicKeys []interface{}]
	opcode   int
	hasValue bool
	value    interface{}
}

func (e *Encoder) preparePatches(patches []StatePatch, scope Scope, forceDefine bool) ([]preparedPatch, error) {
	var table *SlotTable
	if e.hasher != nil {
		table = e.tableFor(scope)
		if forceDefine {
			table.ResetKnown()
		}
	}

	out := make([]preparedPatch, 0, len(patches))
	for _, p := range patches {
		pp := preparedPatch{opcode: p.Op.opcode()}
		if p.Op != OpDelete {
			pp.hasValue = true
			pp.value = p.Value
		}

		if e.hasher == nil {
			pp.pathRepr = p.Path
			out = append(out, pp)
			continue
		}

		hash, dynKeys, err := e.hasher.Match(p.Path)
		if err != nil {
			return nil, err
		}

		var dynWire []interface{}
		for _, k := range dynKeys {
			entry := table.Emit(k, forceDefine)
			if entry.Define {
				dynWire = append(dynWire, []interface{}{entry.Slot, entry.DefineText})
			} else {
				dynWire = append(dynWire, entry.Slot)
			}
		}
		pp.pathRepr = []interface{}{hash, dynWire}
		out = append(out, pp)
	}
	return out, nil
}
