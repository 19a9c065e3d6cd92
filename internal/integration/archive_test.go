// Package integration runs the query stack against a real PostgreSQL
// archive. The tests are skipped unless SLACKMCP_TEST_DATABASE_URL points
// at a disposable database with the vector extension available; they drop
// and recreate the slack schema.
package integration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/slackmcp/internal/embed"
	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
	"github.com/Aman-CERP/slackmcp/internal/query"
	"github.com/Aman-CERP/slackmcp/internal/search"
	"github.com/Aman-CERP/slackmcp/internal/slackts"
	"github.com/Aman-CERP/slackmcp/internal/store"
)

const schemaSQL = `
DROP SCHEMA IF EXISTS slack CASCADE;
CREATE EXTENSION IF NOT EXISTS vector;
CREATE SCHEMA slack;
CREATE TABLE slack.channel (
	id           text PRIMARY KEY,
	channel_name text,
	topic        text,
	purpose      text
);
CREATE TABLE slack.user (
	id           text PRIMARY KEY,
	user_name    text,
	real_name    text,
	display_name text,
	email        text,
	tz           text,
	is_bot       boolean,
	deleted      boolean
);
CREATE TABLE slack.message (
	ts                 timestamptz NOT NULL,
	channel_id         text NOT NULL,
	thread_ts          timestamptz,
	user_id            text,
	text               text,
	files              jsonb,
	attachments        jsonb,
	searchable_content text,
	embedding          vector(3),
	PRIMARY KEY (channel_id, ts)
);
`

// base is the fixture's first message.
var base = time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

type fixtureMessage struct {
	ts        time.Time
	channel   string
	threadTS  *time.Time
	user      string
	text      string
	embedding []float32
}

func fixture() []fixtureMessage {
	root := at(0)
	return []fixtureMessage{
		{at(0), "C1", &root, "U1", "deploy to production started", []float32{1, 0, 0}},
		{at(1), "C1", &root, "U2", "rollback needed on api", []float32{0, 1, 0}},
		{at(2), "C1", &root, "U1", "rollback done", []float32{0, 1, 0.1}},
		{at(5), "C2", nil, "B1", "build green", []float32{1, 0.1, 0}},
		{at(10), "C1", nil, "U2", "lunch plans anyone", []float32{0, 0, 1}},
	}
}

// queryEmbedder embeds every query to the "rollback" direction.
type queryEmbedder struct{}

var _ embed.Embedder = queryEmbedder{}

func (queryEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0, 1, 0}, nil
}

func (e queryEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = e.Embed(ctx, texts[i])
	}
	return out, nil
}

func (queryEmbedder) Dimensions() int { return 3 }

func (queryEmbedder) ModelName() string { return "fixture" }

func (queryEmbedder) Available(context.Context) bool { return true }

func (queryEmbedder) Close() error { return nil }

func seed(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	conn, err := pgx.Connect(ctx, url)
	require.NoError(t, err)
	defer func() { _ = conn.Close(ctx) }()

	_, err = conn.Exec(ctx, schemaSQL)
	require.NoError(t, err)

	_, err = conn.Exec(ctx, `
		INSERT INTO slack.channel (id, channel_name, topic) VALUES
			('C1', 'general', 'company news'),
			('C2', 'builds', '');
		INSERT INTO slack.user (id, user_name, real_name, is_bot, deleted) VALUES
			('U1', 'alice', 'Alice Liddell', false, false),
			('U2', 'bob', 'Bob Builder', false, false),
			('B1', 'deploy-bot', 'Deploy Bot', true, false);
	`)
	require.NoError(t, err)

	for _, m := range fixture() {
		_, err := conn.Exec(ctx, `
			INSERT INTO slack.message (ts, channel_id, thread_ts, user_id, text, searchable_content, embedding)
			VALUES ($1, $2, $3, $4, $5, $5, $6)
		`, m.ts, m.channel, m.threadTS, m.user, m.text, pgvector.NewVector(m.embedding))
		require.NoError(t, err)
	}
}

// newService seeds the archive and wires the query service the way the
// CLI does.
func newService(t *testing.T) *query.Service {
	t.Helper()
	url := os.Getenv("SLACKMCP_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SLACKMCP_TEST_DATABASE_URL not set")
	}
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	seed(t, ctx, url)

	st, err := store.NewPostgresStore(ctx, store.Config{URL: url, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(st.Close)

	engine, err := search.NewEngine(st, st, queryEmbedder{}, search.DefaultConfig())
	require.NoError(t, err)

	return query.NewService(st, engine, slackts.NewLinker("https://acme.slack.com"), query.DefaultConfig())
}

func ts(minutes int) string { return slackts.Encode(at(minutes), false) }

// =============================================================================
// Context assembly
// =============================================================================

func TestArchive_ThreadMessages(t *testing.T) {
	svc := newService(t)

	resp, err := svc.ThreadMessages(context.Background(), query.ThreadRequest{Channel: "general", ThreadTS: ts(0)})

	require.NoError(t, err)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, ts(0), resp.Messages[0].TS)
	assert.Equal(t, ts(1), resp.Messages[1].TS)
	assert.Equal(t, ts(2), resp.Messages[2].TS)
	assert.Contains(t, resp.Users, "U1")
	assert.Contains(t, resp.Users, "U2")
}

func TestArchive_ThreadMessages_ByReplyTS(t *testing.T) {
	svc := newService(t)

	resp, err := svc.ThreadMessages(context.Background(), query.ThreadRequest{Channel: "general", ThreadTS: ts(2)})

	require.NoError(t, err)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, ts(0), resp.Messages[0].TS)
	require.NotNil(t, resp.Messages[0].ReplyCount)
	assert.Equal(t, 2, *resp.Messages[0].ReplyCount)
}

func TestArchive_MessageContext_ReplySeedKeepsRoot(t *testing.T) {
	// Given: a reply seed and a zero window
	svc := newService(t)
	zero := 0

	// When: expanding it
	resp, err := svc.MessageContext(context.Background(), query.MessageContextRequest{
		Messages:    []query.MessageRef{{Channel: "C1", TS: ts(1)}},
		Window:      &zero,
		OutputFlags: query.OutputFlags{IncludePermalinks: true},
	})

	// Then: the root comes along with the stored reply total
	require.NoError(t, err)
	ch, ok := resp.Channels["C1"]
	require.True(t, ok)
	require.Len(t, ch.Messages, 1)
	root := ch.Messages[0]
	assert.Equal(t, ts(0), root.TS)
	assert.False(t, root.Placeholder)
	require.NotNil(t, root.ReplyCount)
	assert.Equal(t, 2, *root.ReplyCount)
	require.Len(t, root.Replies, 1)
	assert.Equal(t, ts(1), root.Replies[0].TS)
	assert.Nil(t, root.Replies[0].ReplyCount)
	assert.Contains(t, root.Permalink, "https://acme.slack.com/archives/C1/p")
}

func TestArchive_ChannelConversations(t *testing.T) {
	svc := newService(t)

	resp, err := svc.ChannelConversations(context.Background(), query.ChannelConversationsRequest{Channel: "#general"})

	require.NoError(t, err)
	assert.NotContains(t, resp.Channels, "C2")
	require.Contains(t, resp.Channels, "C1")
	var roots []string
	for _, m := range resp.Channels["C1"].Messages {
		roots = append(roots, m.TS)
	}
	assert.ElementsMatch(t, []string{ts(0), ts(10)}, roots)
}

func TestArchive_UserConversations(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	resp, err := svc.UserConversations(ctx, query.UserConversationsRequest{User: "bob"})
	require.NoError(t, err)
	for _, ch := range resp.Channels {
		for _, m := range ch.Messages {
			if !m.Placeholder && m.UserID != "" {
				assert.Equal(t, "U2", m.UserID)
			}
			for _, r := range m.Replies {
				assert.Equal(t, "U2", r.UserID)
			}
		}
	}

	_, err = svc.UserConversations(ctx, query.UserConversationsRequest{User: "deploy-bot"})
	assert.True(t, errors.Is(err, slerrors.ErrNotFound))

	resp, err = svc.UserConversations(ctx, query.UserConversationsRequest{User: "deploy-bot", IncludeBots: true})
	require.NoError(t, err)
	assert.Contains(t, resp.Channels, "C2")
}

// =============================================================================
// Search
// =============================================================================

func TestArchive_KeywordSearch(t *testing.T) {
	svc := newService(t)
	keyword := 0.0

	resp, err := svc.Search(context.Background(), query.SearchRequest{Query: "rollback", SemanticWeight: &keyword})

	require.NoError(t, err)
	var got []string
	for _, m := range resp.Messages {
		got = append(got, m.TS)
	}
	assert.ElementsMatch(t, []string{ts(1), ts(2)}, got)
}

func TestArchive_SemanticSearch(t *testing.T) {
	svc := newService(t)
	semantic := 1.0

	resp, err := svc.Search(context.Background(), query.SearchRequest{
		Query:          "what went wrong",
		Channels:       []string{"general"},
		SemanticWeight: &semantic,
		Limit:          2,
	})

	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, ts(1), resp.Messages[0].TS)
	assert.Equal(t, ts(2), resp.Messages[1].TS)
	require.NotNil(t, resp.Messages[0].Score)
	assert.Greater(t, *resp.Messages[0].Score, *resp.Messages[1].Score)
}

func TestArchive_SearchTree(t *testing.T) {
	svc := newService(t)
	keyword := 0.0

	resp, err := svc.Search(context.Background(), query.SearchRequest{Query: "rollback", SemanticWeight: &keyword, Tree: true})

	require.NoError(t, err)
	require.Contains(t, resp.Channels, "C1")
	roots := resp.Channels["C1"].Messages
	require.Len(t, roots, 1)
	assert.Equal(t, ts(0), roots[0].TS)
	assert.Len(t, roots[0].Replies, 2)
}
