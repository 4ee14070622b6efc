package patch

import "sync"

// Scope names which slot table a patch's dynamic keys consult: one shared
// table for broadcast-scope updates, one table per player for
// perPlayer-scope updates.
type Scope struct {
	// Broadcast is true for the single land-wide shared table.
	Broadcast bool
	// Player identifies the perPlayer table when Broadcast is false.
	Player string
}

// BroadcastScope is the shared scope used for broadcast-scope patches.
var BroadcastScope = Scope{Broadcast: true}

// PlayerScope returns the perPlayer scope for one player.
func PlayerScope(playerID string) Scope {
	return Scope{Player: playerID}
}

func (s Scope) key() string {
	if s.Broadcast {
		return "\x00broadcast"
	}
	return "p:" + s.Player
}

// SlotTable is the actor-local (per scope) dynamic-key slot allocator. The
// first time a string is emitted within a scope it is sent as a [slot,
// string] definition; later emissions within the same scope send the bare
// slot. ResetKnown forces every subsequent lookup to redefine, used once per
// firstSync per player so a rejoining player always gets full definitions.
type SlotTable struct {
	mu       sync.Mutex
	assigned map[string]int32
	known    map[string]bool
	next     int32
}

// NewSlotTable returns an empty table.
func NewSlotTable() *SlotTable {
	return &SlotTable{
		assigned: make(map[string]int32),
		known:    make(map[string]bool),
	}
}

// ResetKnown clears which keys the recipient is assumed to already know,
// without discarding the slot assignment (slot numbers may be reused
// verbatim — spec: "Slot IDs may be reused but the encoder must
// force-redefine any still-needed keys in that firstSync").
func (t *SlotTable) ResetKnown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.known = make(map[string]bool)
}

// slotEntry is what Emit returns for one dynamic key: either a bare
// already-known slot, or a definition the encoder must write in full.
type slotEntry struct {
	Slot       int32
	Define     bool
	DefineText string
}

// Emit returns the wire form for one dynamic-key string under this table,
// allocating a new slot on first use and marking it known thereafter.
// forceDefine (true inside a firstSync) always returns a full definition
// and (re)marks the slot known, even if it was already known.
func (t *SlotTable) Emit(value string, forceDefine bool) slotEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot, ok := t.assigned[value]
	if !ok {
		slot = t.next
		t.next++
		t.assigned[value] = slot
	}

	if forceDefine || !t.known[value] {
		t.known[value] = true
		return slotEntry{Slot: slot, Define: true, DefineText: value}
	}
	return slotEntry{Slot: slot}
}
