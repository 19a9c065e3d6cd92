package slackts

import (
	"net/url"
	"strings"
	"time"
)

// Linker renders message permalinks for one workspace.
// The zero value and a Linker with an empty base URL render nothing.
type Linker struct {
	base string
}

// NewLinker returns a Linker for the workspace at baseURL
// (e.g. "https://acme.slack.com"). A trailing slash is ignored.
func NewLinker(baseURL string) *Linker {
	return &Linker{base: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// Enabled reports whether the linker has a workspace base URL.
func (l *Linker) Enabled() bool {
	return l != nil && l.base != ""
}

// BaseURL returns the workspace base URL.
func (l *Linker) BaseURL() string {
	if l == nil {
		return ""
	}
	return l.base
}

// Permalink renders
//
//	<base>/archives/<channel>/p<ts micros>[?thread_ts=<thread sec.micros>]
//
// The thread_ts query is only added for replies, i.e. when threadTS is set
// and differs from ts. Returns "" when the linker is disabled.
func (l *Linker) Permalink(channelID string, ts time.Time, threadTS *time.Time) string {
	if !l.Enabled() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(l.base)
	sb.WriteString("/archives/")
	sb.WriteString(url.PathEscape(channelID))
	sb.WriteString("/p")
	sb.WriteString(Encode(ts, true))

	if threadTS != nil && !Truncate(*threadTS).Equal(Truncate(ts)) {
		sb.WriteString("?thread_ts=")
		sb.WriteString(Encode(*threadTS, false))
	}
	return sb.String()
}

// PermalinkFromNative renders a permalink from native timestamp strings.
// threadTS may be empty. A malformed timestamp returns an error matching
// errors.ErrUnparseableTimestamp; callers omit the permalink in that case.
func (l *Linker) PermalinkFromNative(channelID, ts, threadTS string) (string, error) {
	t, err := Decode(ts)
	if err != nil {
		return "", err
	}

	var thread *time.Time
	if threadTS != "" {
		tt, err := Decode(threadTS)
		if err != nil {
			return "", err
		}
		thread = &tt
	}
	return l.Permalink(channelID, t, thread), nil
}
