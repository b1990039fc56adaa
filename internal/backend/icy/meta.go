package icy

import "strings"

// parseMetaBlock decodes an ICY metadata payload such as
//
//	StreamTitle='Artist - Song';StreamUrl='';
//
// into tag entries. The payload is NUL padded to a 16-byte boundary. Returns
// the trimmed raw text alongside the entries so callers can suppress repeats.
func parseMetaBlock(payload []byte) (string, map[string]any) {
	raw := strings.TrimRight(string(payload), "\x00")
	s := raw
	var tags map[string]any
	for s != "" {
		eq := strings.Index(s, "='")
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(strings.TrimLeft(s[:eq], ";"))
		rest := s[eq+2:]

		var val string
		if end := strings.Index(rest, "';"); end >= 0 {
			val = rest[:end]
			s = rest[end+2:]
		} else {
			val = strings.TrimSuffix(rest, "'")
			s = ""
		}

		if key == "" {
			continue
		}
		if tags == nil {
			tags = make(map[string]any)
		}
		tags[key] = val
	}
	return raw, tags
}
