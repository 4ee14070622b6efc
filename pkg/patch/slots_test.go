package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotTableFirstUseDefines(t *testing.T) {
	tbl := NewSlotTable()
	entry := tbl.Emit("p1", false)
	assert.True(t, entry.Define)
	assert.Equal(t, "p1", entry.DefineText)
	assert.Equal(t, int32(0), entry.Slot)
}

func TestSlotTableSecondUseIsBareSlot(t *testing.T) {
	tbl := NewSlotTable()
	first := tbl.Emit("p1", false)
	second := tbl.Emit("p1", false)

	assert.False(t, second.Define)
	assert.Equal(t, first.Slot, second.Slot)
}

func TestSlotTableAssignsDistinctSlots(t *testing.T) {
	tbl := NewSlotTable()
	a := tbl.Emit("p1", false)
	b := tbl.Emit("p2", false)
	assert.NotEqual(t, a.Slot, b.Slot)
}

func TestSlotTableResetKnownForcesRedefineButKeepsSlot(t *testing.T) {
	tbl := NewSlotTable()
	first := tbl.Emit("p1", false)

	tbl.ResetKnown()
	second := tbl.Emit("p1", false)

	assert.True(t, second.Define)
	assert.Equal(t, first.Slot, second.Slot)
}

func TestSlotTableForceDefineAlwaysDefines(t *testing.T) {
	tbl := NewSlotTable()
	tbl.Emit("p1", false)
	entry := tbl.Emit("p1", true)
	assert.True(t, entry.Define)
}

func TestScopeKeysDoNotAlias(t *testing.T) {
	assert.NotEqual(t, BroadcastScope.key(), PlayerScope("p1").key())
	assert.NotEqual(t, PlayerScope("p1").key(), PlayerScope("p2").key())
}
