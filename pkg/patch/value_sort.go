package patch

import "sort"

// sortedKeys returns the keys of an object-shaped SnapshotValue in
// ascending ASCII order, for deterministic encoding.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
