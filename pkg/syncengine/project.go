// Package syncengine computes, for each joined player, the minimal
// StateUpdate since their last known view of a land's state. It owns the
// per-player last-sent snapshot
// cache and the firstSync-sent bookkeeping; it does not own wire encoding
// (see pkg/patch) nor transport delivery (see pkg/transport).
package syncengine

import (
	"encoding/json"
	"fmt"

	"github.com/opd-ai/landkeep/pkg/land"
)

// ValueMap is the recursive projected-state shape produced by marshaling a
// land's authoritative state to JSON and back: nil, bool, float64, string,
// []interface{}, or map[string]interface{}.
type ValueMap = map[string]interface{}

// ProjectFull marshals state to its full ValueMap representation. Top-level
// JSON field names are what FieldScopes keys against.
func ProjectFull(state interface{}) (ValueMap, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("syncengine: marshal state: %w", err)
	}
	var full ValueMap
	if err := json.Unmarshal(raw, &full); err != nil {
		return nil, fmt.Errorf("syncengine: state did not marshal to an object: %w", err)
	}
	return full, nil
}

// projectFor narrows full down to what one player is allowed to see, per the
// definition's FieldScopes: broadcast fields
// are copied verbatim, perPlayerSlice fields are replaced by their
// map[playerID] entry (and omitted entirely when the player has no entry).
func projectFor[S any](def *land.Definition[S], playerID land.PlayerID, full ValueMap) ValueMap {
	out := make(ValueMap, len(full))
	for field, value := range full {
		switch def.ScopeOf(field) {
		case land.ScopePerPlayerSlice:
			slice, ok := value.(map[string]interface{})
			if !ok {
				// Not a map: the field is misconfigured as perPlayerSlice,
				// but fail soft rather than drop the whole projection.
				out[field] = value
				continue
			}
			if v, ok := slice[string(playerID)]; ok {
				out[field] = v
			}
		default:
			out[field] = value
		}
	}
	return out
}
