package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// scanMessage reads one row selected with messageColumns.
// extra receives any trailing columns.
func scanMessage(row pgx.Row, extra ...any) (*Message, error) {
	var (
		m                  Message
		files, attachments []byte
	)
	dest := append([]any{
		&m.TS,
		&m.ChannelID,
		&m.ThreadTS,
		&m.UserID,
		&m.Text,
		&files,
		&attachments,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	m.TS = m.TS.UTC()
	if m.ThreadTS != nil {
		t := m.ThreadTS.UTC()
		m.ThreadTS = &t
	}
	m.Files = files
	m.Attachments = attachments
	sanitizeMessage(&m)
	return &m, nil
}

func collectMessages(rows pgx.Rows) ([]*Message, error) {
	defer rows.Close()

	var list []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// splitKeys turns keys into parallel arrays for unnest().
func splitKeys(keys []MessageKey) ([]string, []time.Time) {
	channels := make([]string, len(keys))
	stamps := make([]time.Time, len(keys))
	for i, k := range keys {
		channels[i] = k.ChannelID
		stamps[i] = k.TS
	}
	return channels, stamps
}

// MessagesByKey loads messages by identity. Keys with no stored message are
// simply absent from the result; order is chronological.
func (s *PostgresStore) MessagesByKey(ctx context.Context, keys []MessageKey) (_ []*Message, err error) {
	defer s.observe("messages_by_key", time.Now(), &err)
	if len(keys) == 0 {
		return nil, nil
	}

	channels, stamps := splitKeys(keys)
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM slack.message m
		JOIN unnest($1::text[], $2::timestamptz[]) AS k(channel_id, ts)
			ON m.channel_id = k.channel_id AND m.ts = k.ts
		ORDER BY m.ts, m.channel_id
	`, channels, stamps)
	if err != nil {
		return nil, wrapQueryError("load messages", err)
	}
	list, err := collectMessages(rows)
	if err != nil {
		return nil, wrapQueryError("load messages", err)
	}
	return list, nil
}

// ThreadMessages returns a thread's root (when stored) and all its replies,
// oldest first.
func (s *PostgresStore) ThreadMessages(ctx context.Context, channelID string, threadTS time.Time) (_ []*Message, err error) {
	defer s.observe("thread_messages", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM slack.message m
		WHERE m.channel_id = $1 AND (m.ts = $2 OR m.thread_ts = $2)
		ORDER BY m.ts
	`, channelID, threadTS)
	if err != nil {
		return nil, wrapQueryError("load thread", err)
	}
	list, err := collectMessages(rows)
	if err != nil {
		return nil, wrapQueryError("load thread", err)
	}
	return list, nil
}

// ChannelRoots returns root-level messages in one channel within Span of
// Around, at most PerSide on each side, oldest first. The message at
// Around itself is not included.
func (s *PostgresStore) ChannelRoots(ctx context.Context, q ChannelRootsQuery) (_ []*Message, err error) {
	defer s.observe("channel_roots", time.Now(), &err)
	if q.PerSide <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT * FROM (
			(SELECT `+messageColumns+`
			FROM slack.message m
			WHERE m.channel_id = $1 AND m.ts < $2 AND m.ts >= $3 AND `+isRootClause+`
			ORDER BY m.ts DESC
			LIMIT $5)
			UNION ALL
			(SELECT `+messageColumns+`
			FROM slack.message m
			WHERE m.channel_id = $1 AND m.ts > $2 AND m.ts <= $4 AND `+isRootClause+`
			ORDER BY m.ts ASC
			LIMIT $5)
		) nearby
		ORDER BY 1
	`, q.ChannelID, q.Around, q.Around.Add(-q.Span), q.Around.Add(q.Span), q.PerSide)
	if err != nil {
		return nil, wrapQueryError("load channel context", err)
	}
	list, err := collectMessages(rows)
	if err != nil {
		return nil, wrapQueryError("load channel context", err)
	}
	return list, nil
}

// ReplyCounts returns the number of stored replies for each thread root.
// Roots without replies are absent from the map.
func (s *PostgresStore) ReplyCounts(ctx context.Context, roots []MessageKey) (_ map[KeyID]int, err error) {
	defer s.observe("reply_counts", time.Now(), &err)
	counts := make(map[KeyID]int, len(roots))
	if len(roots) == 0 {
		return counts, nil
	}

	channels, stamps := splitKeys(roots)
	rows, err := s.pool.Query(ctx, `
		SELECT m.channel_id, m.thread_ts, count(*)
		FROM slack.message m
		JOIN unnest($1::text[], $2::timestamptz[]) AS r(channel_id, ts)
			ON m.channel_id = r.channel_id AND m.thread_ts = r.ts
		WHERE m.ts <> m.thread_ts
		GROUP BY m.channel_id, m.thread_ts
	`, channels, stamps)
	if err != nil {
		return nil, wrapQueryError("count replies", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			channelID string
			threadTS  time.Time
			n         int
		)
		if err := rows.Scan(&channelID, &threadTS, &n); err != nil {
			return nil, wrapQueryError("count replies", err)
		}
		counts[MessageKey{ChannelID: channelID, TS: threadTS}.ID()] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError("count replies", err)
	}
	return counts, nil
}

// RecentMessages returns messages matching f, newest first.
func (s *PostgresStore) RecentMessages(ctx context.Context, f Filter, limit int) (_ []*Message, err error) {
	defer s.observe("recent_messages", time.Now(), &err)

	w := newWhereBuilder()
	w.addFilter(f)
	limitArg := w.addArg(limit)

	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM slack.message m
		WHERE `+w.String()+`
		ORDER BY m.ts DESC, m.channel_id
		LIMIT `+limitArg, w.args...)
	if err != nil {
		return nil, wrapQueryError("load recent messages", err)
	}
	list, err := collectMessages(rows)
	if err != nil {
		return nil, wrapQueryError("load recent messages", err)
	}
	return list, nil
}
