package patch

import "strings"

// escapeToken escapes one JSON-pointer reference token per RFC 6901: "~" ->
// "~0", "/" -> "~1". Order matters: "~" must be escaped first.
func escapeToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~", "~0")
	tok = strings.ReplaceAll(tok, "/", "~1")
	return tok
}

func unescapeToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~1", "/")
	tok = strings.ReplaceAll(tok, "~0", "~")
	return tok
}

// JoinPointer appends a reference token to a JSON pointer path ("" is the
// document root).
func JoinPointer(base string, token string) string {
	return base + "/" + escapeToken(token)
}

// SplitPointer decomposes a JSON pointer into its unescaped reference
// tokens. "/foo/bar" -> ["foo", "bar"]; "" -> [].
func SplitPointer(path string) []string {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	// strings.Split("/foo/bar", "/") == ["", "foo", "bar"]; drop the
	// leading empty token produced by the root slash.
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = unescapeToken(p)
	}
	return out
}
