package store

import (
	"encoding/json"
	"strings"
)

// StripNullBytes removes NUL characters from text read out of storage.
func StripNullBytes(s string) string {
	if !strings.ContainsRune(s, 0) {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// StripJSONNullEscapes removes \u0000 escapes from a raw JSON document.
// jsonb accepts the escape even though text columns cannot hold NUL,
// so files and attachments may carry it. An escaped backslash followed
// by "u0000" is literal text and is kept.
func StripJSONNullEscapes(raw json.RawMessage) json.RawMessage {
	const esc = `\u0000`
	if len(raw) == 0 || !strings.Contains(string(raw), esc) {
		return raw
	}

	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' {
			out = append(out, raw[i])
			continue
		}
		if i+len(esc) <= len(raw) && string(raw[i:i+len(esc)]) == esc {
			i += len(esc) - 1
			continue
		}
		// Any other escape: copy the backslash and the escaped byte together.
		out = append(out, raw[i])
		if i+1 < len(raw) {
			i++
			out = append(out, raw[i])
		}
	}
	return out
}

func sanitizeMessage(m *Message) {
	m.Text = StripNullBytes(m.Text)
	m.Files = StripJSONNullEscapes(m.Files)
	m.Attachments = StripJSONNullEscapes(m.Attachments)
}
