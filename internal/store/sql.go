package store

import (
	"strconv"
	"strings"
)

// messageColumns is the select list shared by every message query.
// scanMessage reads columns in exactly this order.
const messageColumns = `m.ts, m.channel_id, m.thread_ts, m.user_id, COALESCE(m.text, ''), m.files, m.attachments`

// isRootClause matches thread roots and unthreaded messages.
const isRootClause = `(m.thread_ts IS NULL OR m.thread_ts = m.ts)`

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// whereBuilder accumulates AND-ed predicates and their positional args.
// Args passed to newWhereBuilder occupy the first placeholders.
type whereBuilder struct {
	where []string
	args  []any
}

func newWhereBuilder(args ...any) *whereBuilder {
	return &whereBuilder{where: []string{"1 = 1"}, args: args}
}

// add appends a predicate. Each "?" in clause is replaced by the next
// placeholder, consuming one arg.
func (w *whereBuilder) add(clause string, args ...any) {
	var sb strings.Builder
	for i := 0; i < len(clause); i++ {
		if clause[i] == '?' && len(args) > 0 {
			w.args = append(w.args, args[0])
			args = args[1:]
			sb.WriteString(placeholder(len(w.args)))
			continue
		}
		sb.WriteByte(clause[i])
	}
	w.where = append(w.where, sb.String())
}

// addArg appends a free argument, not tied to a predicate, and returns its placeholder.
func (w *whereBuilder) addArg(arg any) string {
	w.args = append(w.args, arg)
	return placeholder(len(w.args))
}

// addFilter applies f to the message alias m.
func (w *whereBuilder) addFilter(f Filter) {
	if len(f.UserIDs) > 0 {
		w.add("m.user_id = ANY(?)", f.UserIDs)
	}
	if len(f.ChannelIDs) > 0 {
		w.add("m.channel_id = ANY(?)", f.ChannelIDs)
	}
	if !f.Since.IsZero() {
		w.add("m.ts >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		w.add("m.ts < ?", f.Until)
	}
}

func (w *whereBuilder) String() string {
	return strings.Join(w.where, " AND ")
}
