package syncengine

import (
	"reflect"
	"sort"

	"github.com/opd-ai/landkeep/pkg/patch"
)

// diffValues recursively compares oldV against newV at JSON-pointer path,
// appending the patches needed to turn oldV into newV into out. Objects
// recurse key-by-key; arrays and scalars are compared by deep equality and,
// if different, replaced wholesale with a single "set"; array elements are
// never diffed element-wise.
func diffValues(path string, oldV, newV interface{}, out *[]patch.StatePatch) {
	oldMap, oldIsMap := oldV.(map[string]interface{})
	newMap, newIsMap := newV.(map[string]interface{})

	if oldIsMap && newIsMap {
		diffObjects(path, oldMap, newMap, out)
		return
	}

	if reflect.DeepEqual(oldV, newV) {
		return
	}
	*out = append(*out, patch.StatePatch{Path: path, Op: patch.OpSet, Value: newV})
}

func diffObjects(path string, oldMap, newMap map[string]interface{}, out *[]patch.StatePatch) {
	for k, oldChild := range oldMap {
		childPath := patch.JoinPointer(path, k)
		newChild, present := newMap[k]
		if !present {
			*out = append(*out, patch.StatePatch{Path: childPath, Op: patch.OpDelete})
			continue
		}
		diffValues(childPath, oldChild, newChild, out)
	}
	for k, newChild := range newMap {
		if _, present := oldMap[k]; present {
			continue
		}
		childPath := patch.JoinPointer(path, k)
		*out = append(*out, patch.StatePatch{Path: childPath, Op: patch.OpAdd, Value: newChild})
	}
}

// diffMaps computes the patch list that turns oldState into newState, rooted
// at "". Patches are sorted by path for deterministic wire output; this does
// not change their semantics since each path is independent.
func diffMaps(oldState, newState ValueMap) []patch.StatePatch {
	var out []patch.StatePatch
	diffObjects("", oldState, newState, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// snapshotPatches expresses full as a set of "add" patches against an empty
// document, used to build a firstSync: an absolute snapshot expressed as
// patches against empty.
func snapshotPatches(full ValueMap) []patch.StatePatch {
	return diffMaps(ValueMap{}, full)
}
