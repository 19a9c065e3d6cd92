package slackts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
)

var durationPattern = regexp.MustCompile(`^(\d+)([DWMYdwmy])$`)

// ParseSince parses a time bound given by a user or agent.
//
// Accepted forms, tried in order:
//   - "YYYY-MM-DD" (midnight UTC)
//   - an RFC 3339 instant
//   - "<n><unit>" with unit D, W, M or Y: that many days, weeks, months or
//     years before now, calendar aware
//   - a native Slack timestamp
//
// The empty string returns the zero time and no error.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}

	if m := durationPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, invalidSince(s)
		}
		switch strings.ToUpper(m[2]) {
		case "D":
			return now.AddDate(0, 0, -n), nil
		case "W":
			return now.AddDate(0, 0, -7*n), nil
		case "M":
			return now.AddDate(0, -n, 0), nil
		case "Y":
			return now.AddDate(-n, 0, 0), nil
		}
	}

	if t, err := Decode(s); err == nil {
		return t, nil
	}

	return time.Time{}, invalidSince(s)
}

func invalidSince(s string) error {
	return slerrors.ValidationError(
		fmt.Sprintf("invalid time bound %q", s), nil).
		WithSuggestion("Use YYYY-MM-DD, an RFC 3339 time, a Slack ts, or a duration like 7D, 4W, 3M, 1Y.")
}
