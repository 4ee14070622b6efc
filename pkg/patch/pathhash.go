package patch

import (
	"fmt"
	"strings"
)

// PathHasher is a prearranged map from dotted path patterns (with "*"
// wildcards, e.g. "players.*.hp") to stable 32-bit integers, shared out of
// band between client and server. When absent, patch paths are sent as raw
// JSON-pointer strings.
type PathHasher struct {
	patterns []pattern
}

type pattern struct {
	segments []string // "*" marks a wildcard segment
	hash     uint32
}

// NewPathHasher builds a PathHasher from dotted-pattern -> hash pairs.
func NewPathHasher(patterns map[string]uint32) *PathHasher {
	h := &PathHasher{}
	for dotted, hash := range patterns {
		h.patterns = append(h.patterns, pattern{
			segments: strings.Split(dotted, "."),
			hash:     hash,
		})
	}
	return h
}

// ErrPathHashMismatch is returned when a path does not match any registered
// pattern. Treated as a prearranged-schema violation: implementers should
// fail fast rather than guess.
var ErrPathHashMismatch = fmt.Errorf("patch: path does not match any registered PathHasher pattern")

// Match resolves a JSON-pointer path against the registered patterns,
// returning the pattern's hash and the literal values that filled each "*"
// position, in left-to-right order.
func (h *PathHasher) Match(jsonPointerPath string) (hash uint32, dynamicKeys []string, err error) {
	segs := SplitPointer(jsonPointerPath)
	for _, p := range h.patterns {
		if len(p.segments) != len(segs) {
			continue
		}
		var keys []string
		matched := true
		for i, ps := range p.segments {
			if ps == "*" {
				keys = append(keys, segs[i])
				continue
			}
			if ps != segs[i] {
				matched = false
				break
			}
		}
		if matched {
			return p.hash, keys, nil
		}
	}
	return 0, nil, fmt.Errorf("%w: %q", ErrPathHashMismatch, jsonPointerPath)
}

// resolveHash resolves a hash back to its segment template, used when
// decoding a hashed path back into a JSON pointer.
func (h *PathHasher) resolveHash(hash uint32) (pattern, bool) {
	for _, p := range h.patterns {
		if p.hash == hash {
			return p, true
		}
	}
	return pattern{}, false
}

// Rebuild reconstructs the JSON-pointer path for a hash given the dynamic
// key values in the same left-to-right order Match produced them.
func (h *PathHasher) Rebuild(hash uint32, dynamicKeys []string) (string, error) {
	p, ok := h.resolveHash(hash)
	if !ok {
		return "", fmt.Errorf("%w: hash %d", ErrPathHashMismatch, hash)
	}
	var b strings.Builder
	ki := 0
	for _, seg := range p.segments {
		if seg == "*" {
			if ki >= len(dynamicKeys) {
				return "", fmt.Errorf("patch: not enough dynamic keys to rebuild path for hash %d", hash)
			}
			b.WriteString(JoinPointer("", dynamicKeys[ki]))
			ki++
			continue
		}
		b.WriteString(JoinPointer("", seg))
	}
	return b.String(), nil
}
