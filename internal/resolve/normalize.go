package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s and strips combining marks, so "José" and "jose"
// compare equal. A transform.Transformer is stateful, so one is built
// per call.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// trimSigil drops a leading "#" or "@" users type out of habit.
func trimSigil(q string) string {
	q = strings.TrimSpace(q)
	return strings.TrimLeft(q, "#@")
}
