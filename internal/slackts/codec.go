// Package slackts converts between Slack's native message timestamps and
// time.Time, and renders permalinks.
//
// Native timestamps are decimal strings of whole seconds and a six digit
// microsecond fraction ("1712345678.000200"). Permalink tokens carry a "p"
// prefix followed by an integer.
package slackts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
)

// maxMillisDigits is the longest "p" token still read as milliseconds.
// Millisecond epochs have 13 digits until the year 2286; Slack's own
// permalink path tokens are 16 digit microsecond counts.
const maxMillisDigits = 13

// Decode parses a native timestamp.
//
// Accepted forms:
//   - "p" followed by digits: milliseconds since the epoch, or microseconds
//     when longer than 13 digits
//   - "<seconds>.<fraction>": fraction digits past the sixth are truncated
//   - "<seconds>"
//
// Malformed input returns an error matching errors.ErrUnparseableTimestamp.
func Decode(native string) (time.Time, error) {
	s := strings.TrimSpace(native)
	if s == "" {
		return time.Time{}, slerrors.UnparseableTimestamp(native, nil)
	}

	if s[0] == 'p' || s[0] == 'P' {
		digits := s[1:]
		if !allDigits(digits) {
			return time.Time{}, slerrors.UnparseableTimestamp(native, nil)
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return time.Time{}, slerrors.UnparseableTimestamp(native, err)
		}
		if len(digits) <= maxMillisDigits {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.UnixMicro(n).UTC(), nil
	}

	secPart, fracPart, hasFrac := strings.Cut(s, ".")
	if !allDigits(secPart) || (hasFrac && !allDigits(fracPart)) {
		return time.Time{}, slerrors.UnparseableTimestamp(native, nil)
	}

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, slerrors.UnparseableTimestamp(native, err)
	}

	var micros int64
	if hasFrac {
		if len(fracPart) > 6 {
			fracPart = fracPart[:6]
		} else {
			fracPart += strings.Repeat("0", 6-len(fracPart))
		}
		micros, _ = strconv.ParseInt(fracPart, 10, 64)
	}

	return time.Unix(sec, micros*int64(time.Microsecond)).UTC(), nil
}

// Encode renders t in native form. The canonical form is
// "<seconds>.<6 digit micros>"; microsecondForm renders the integer
// microsecond count used in permalink paths.
// Precision below a microsecond is truncated.
func Encode(t time.Time, microsecondForm bool) string {
	us := t.UnixMicro()
	if microsecondForm {
		return strconv.FormatInt(us, 10)
	}
	sec := us / 1_000_000
	frac := us % 1_000_000
	if frac < 0 {
		sec--
		frac += 1_000_000
	}
	return fmt.Sprintf("%d.%06d", sec, frac)
}

// Normalize decodes and re-encodes a native timestamp into canonical form.
func Normalize(native string) (string, error) {
	t, err := Decode(native)
	if err != nil {
		return "", err
	}
	return Encode(t, false), nil
}

// Truncate drops precision below a microsecond, the resolution shared by
// Slack and the storage engine.
func Truncate(t time.Time) time.Time {
	return t.Truncate(time.Microsecond)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
