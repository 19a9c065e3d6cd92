package query

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/slackmcp/internal/conversation"
	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
	"github.com/Aman-CERP/slackmcp/internal/search"
	"github.com/Aman-CERP/slackmcp/internal/slackts"
	"github.com/Aman-CERP/slackmcp/internal/store"
)

// =============================================================================
// Test Doubles
// =============================================================================

func at(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func ptr[T any](v T) *T { return &v }

func rootMsg(channel, user string, sec int64, text string) *store.Message {
	t := at(sec)
	return &store.Message{ChannelID: channel, TS: t, ThreadTS: &t, UserID: &user, Text: text}
}

func replyMsg(channel, user string, sec, thread int64, text string) *store.Message {
	t := at(thread)
	return &store.Message{ChannelID: channel, TS: at(sec), ThreadTS: &t, UserID: &user, Text: text}
}

// memStore is an in-memory Store.
type memStore struct {
	msgs     []*store.Message
	channels []*store.Channel
	users    []*store.User

	lastFilter store.Filter
	lastLimit  int
}

var _ Store = (*memStore)(nil)

func (s *memStore) clone(m *store.Message) *store.Message { return m.Clone() }

func (s *memStore) MessagesByKey(_ context.Context, keys []store.MessageKey) ([]*store.Message, error) {
	want := make(map[store.KeyID]bool)
	for _, k := range keys {
		want[k.ID()] = true
	}
	var out []*store.Message
	for _, m := range s.msgs {
		if want[m.Key().ID()] {
			out = append(out, s.clone(m))
		}
	}
	return out, nil
}

func (s *memStore) ThreadMessages(_ context.Context, channelID string, threadTS time.Time) ([]*store.Message, error) {
	var out []*store.Message
	for _, m := range s.msgs {
		if m.ChannelID != channelID {
			continue
		}
		if m.TS.Equal(threadTS) || (m.ThreadTS != nil && m.ThreadTS.Equal(threadTS)) {
			out = append(out, s.clone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out, nil
}

func (s *memStore) ChannelRoots(_ context.Context, q store.ChannelRootsQuery) ([]*store.Message, error) {
	var out []*store.Message
	for _, m := range s.msgs {
		if m.ChannelID == q.ChannelID && m.IsRoot() && !m.TS.Equal(q.Around) {
			out = append(out, s.clone(m))
		}
	}
	return out, nil
}

func (s *memStore) ReplyCounts(_ context.Context, roots []store.MessageKey) (map[store.KeyID]int, error) {
	counts := make(map[store.KeyID]int)
	for _, k := range roots {
		for _, m := range s.msgs {
			if m.ChannelID == k.ChannelID && m.IsReply() && m.ThreadTS.Equal(k.TS) {
				counts[k.ID()]++
			}
		}
	}
	return counts, nil
}

func (s *memStore) RecentMessages(_ context.Context, f store.Filter, limit int) ([]*store.Message, error) {
	s.lastFilter, s.lastLimit = f, limit
	var out []*store.Message
	for _, m := range s.msgs {
		if len(f.ChannelIDs) > 0 && !contains(f.ChannelIDs, m.ChannelID) {
			continue
		}
		if len(f.UserIDs) > 0 && (m.UserID == nil || !contains(f.UserIDs, *m.UserID)) {
			continue
		}
		if !f.Since.IsZero() && m.TS.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && !m.TS.Before(f.Until) {
			continue
		}
		out = append(out, s.clone(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS.After(out[j].TS) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ListChannels(context.Context) ([]*store.Channel, error) { return s.channels, nil }
func (s *memStore) ListUsers(context.Context) ([]*store.User, error)       { return s.users, nil }

func (s *memStore) UsersByID(_ context.Context, ids []string) (map[string]*store.User, error) {
	out := make(map[string]*store.User)
	for _, u := range s.users {
		if contains(ids, u.ID) {
			out[u.ID] = u
		}
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// FakeSearcher returns canned results and records the options it got.
type FakeSearcher struct {
	Results []*search.SearchResult
	Err     error

	query string
	opts  search.SearchOptions
}

var _ Searcher = (*FakeSearcher)(nil)

func (f *FakeSearcher) Search(_ context.Context, query string, opts search.SearchOptions) ([]*search.SearchResult, error) {
	f.query, f.opts = query, opts
	return f.Results, f.Err
}

// newFixture is a small workspace:
//
//	#general (C1): root 100 by alice with replies 101, 102, 103; root 200 by bob
//	#random  (C2): replies 501, 502 to a thread 500 that is not stored
func newFixture() *memStore {
	return &memStore{
		msgs: []*store.Message{
			rootMsg("C1", "U1", 100, "deploy is failing"),
			replyMsg("C1", "U2", 101, 100, "looking"),
			replyMsg("C1", "U1", 102, 100, "rolled back"),
			replyMsg("C1", "U2", 103, 100, "fixed"),
			rootMsg("C1", "U2", 200, "lunch?"),
			replyMsg("C2", "U1", 501, 500, "first orphan"),
			replyMsg("C2", "U2", 502, 500, "second orphan"),
		},
		channels: []*store.Channel{
			{ID: "C1", Name: "general", Topic: "everything"},
			{ID: "C2", Name: "random"},
		},
		users: []*store.User{
			{ID: "U1", UserName: "alice", RealName: "Alice Liddell", TZ: "Europe/London"},
			{ID: "U2", UserName: "bob", RealName: "Bob Dobbs"},
			{ID: "U3", UserName: "robert", RealName: "Robert Dobbs"},
			{ID: "B1", UserName: "deploybot", IsBot: true},
		},
	}
}

func newTestService(st *memStore, searcher Searcher) *Service {
	svc := NewService(st, searcher, slackts.NewLinker("https://acme.slack.com"), DefaultConfig())
	svc.now = func() time.Time { return at(10_000) }
	return svc
}

// =============================================================================
// MessageContext
// =============================================================================

func TestService_MessageContext_RootWithWindowOne(t *testing.T) {
	// Given: root 100 with three replies
	svc := newTestService(newFixture(), nil)

	// When: asking for context by channel name with window 1
	resp, err := svc.MessageContext(context.Background(), MessageContextRequest{
		Messages: []MessageRef{{Channel: "#general", TS: "100.000000"}},
		Window:   ptr(1),
	})

	// Then: the root carries the closest reply and the stored reply count
	require.NoError(t, err)
	require.Contains(t, resp.Channels, "C1")
	ch := resp.Channels["C1"]
	assert.Equal(t, "general", ch.Name)

	var rootOut *conversation.MessageOut
	for i := range ch.Messages {
		if ch.Messages[i].TS == "100.000000" {
			rootOut = &ch.Messages[i]
		}
	}
	require.NotNil(t, rootOut)
	require.NotNil(t, rootOut.ReplyCount)
	assert.Equal(t, 3, *rootOut.ReplyCount)
	require.Len(t, rootOut.Replies, 1)
	assert.Equal(t, "101.000000", rootOut.Replies[0].TS)
	assert.Empty(t, rootOut.Permalink)

	assert.Equal(t, "alice", resp.Users["U1"].UserName)
	assert.Contains(t, resp.Users, "U2")
}

func TestService_MessageContext_Permalinks(t *testing.T) {
	svc := newTestService(newFixture(), nil)

	resp, err := svc.MessageContext(context.Background(), MessageContextRequest{
		Messages:    []MessageRef{{Channel: "C1", TS: "102.000000"}},
		Window:      ptr(0),
		OutputFlags: OutputFlags{IncludePermalinks: true},
	})

	require.NoError(t, err)
	msgs := resp.Channels["C1"].Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, "https://acme.slack.com/archives/C1/p100000000", msgs[0].Permalink)
	require.Len(t, msgs[0].Replies, 1)
	assert.Equal(t, "https://acme.slack.com/archives/C1/p102000000?thread_ts=100.000000", msgs[0].Replies[0].Permalink)
}

func TestService_MessageContext_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      MessageContextRequest
		wantCode string
	}{
		{"no messages", MessageContextRequest{}, slerrors.ErrCodeInvalidInput},
		{"bad ts", MessageContextRequest{Messages: []MessageRef{{Channel: "C1", TS: "yesterday"}}}, slerrors.ErrCodeUnparseableTimestamp},
		{"unknown channel", MessageContextRequest{Messages: []MessageRef{{Channel: "#nope", TS: "100"}}}, slerrors.ErrCodeNotFound},
		{"missing message", MessageContextRequest{Messages: []MessageRef{{Channel: "C1", TS: "999"}}}, slerrors.ErrCodeNotFound},
		{"window too large", MessageContextRequest{Messages: []MessageRef{{Channel: "C1", TS: "100"}}, Window: ptr(51)}, slerrors.ErrCodeInvalidWindow},
		{"limit too large", MessageContextRequest{Messages: []MessageRef{{Channel: "C1", TS: "100"}}, Limit: 1001}, slerrors.ErrCodeInvalidLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newFixture(), nil)

			_, err := svc.MessageContext(context.Background(), tt.req)

			assert.Equal(t, tt.wantCode, slerrors.GetCode(err))
		})
	}
}

// =============================================================================
// Conversations
// =============================================================================

func TestService_ChannelConversations_PlaceholderRoot(t *testing.T) {
	// Given: #random holds two replies whose root was never stored
	svc := newTestService(newFixture(), nil)

	// When: listing the channel
	resp, err := svc.ChannelConversations(context.Background(), ChannelConversationsRequest{Channel: "random"})

	// Then: one placeholder root holds both replies
	require.NoError(t, err)
	msgs := resp.Channels["C2"].Messages
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Placeholder)
	assert.Equal(t, "500.000000", msgs[0].TS)
	assert.Equal(t, conversation.PlaceholderText, msgs[0].Text)
	require.NotNil(t, msgs[0].ReplyCount)
	assert.Equal(t, 2, *msgs[0].ReplyCount)
	assert.Len(t, msgs[0].Replies, 2)
}

func TestService_ChannelConversations_StoredReplyCount(t *testing.T) {
	// Given: a limit that fetches root 200 and replies 103, 102 but not root 100
	svc := newTestService(newFixture(), nil)

	// When: listing without expansion
	resp, err := svc.ChannelConversations(context.Background(), ChannelConversationsRequest{Channel: "general", Limit: 3})

	// Then: the placeholder for thread 100 reports all three stored replies
	require.NoError(t, err)
	msgs := resp.Channels["C1"].Messages
	require.Len(t, msgs, 2)
	ph := msgs[0]
	assert.Equal(t, "100.000000", ph.TS)
	assert.True(t, ph.Placeholder)
	require.NotNil(t, ph.ReplyCount)
	assert.Equal(t, 3, *ph.ReplyCount)
	assert.Len(t, ph.Replies, 2)

	// And: a root without replies has no count
	assert.Equal(t, "200.000000", msgs[1].TS)
	assert.Nil(t, msgs[1].ReplyCount)
}

func TestService_ChannelConversations_RootCountBeyondFetched(t *testing.T) {
	// Given: a range holding root 100 and only its first reply
	svc := newTestService(newFixture(), nil)

	// When: listing without expansion
	resp, err := svc.ChannelConversations(context.Background(), ChannelConversationsRequest{
		Channel:   "general",
		TimeRange: TimeRange{Since: "100", Until: "102"},
	})

	// Then: the real root still reports the stored count
	require.NoError(t, err)
	msgs := resp.Channels["C1"].Messages
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Placeholder)
	require.NotNil(t, msgs[0].ReplyCount)
	assert.Equal(t, 3, *msgs[0].ReplyCount)
	assert.Len(t, msgs[0].Replies, 1)
}

func TestService_ChannelConversations_TimeRange(t *testing.T) {
	st := newFixture()
	svc := newTestService(st, nil)

	resp, err := svc.ChannelConversations(context.Background(), ChannelConversationsRequest{
		Channel:   "general",
		TimeRange: TimeRange{Since: "150", Until: "1970-01-02"},
		Limit:     10,
	})

	require.NoError(t, err)
	assert.Equal(t, at(150), st.lastFilter.Since)
	assert.Equal(t, at(86400), st.lastFilter.Until)
	assert.Equal(t, 10, st.lastLimit)
	msgs := resp.Channels["C1"].Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, "200.000000", msgs[0].TS)
}

func TestService_ChannelConversations_InvertedRange(t *testing.T) {
	svc := newTestService(newFixture(), nil)

	_, err := svc.ChannelConversations(context.Background(), ChannelConversationsRequest{
		Channel:   "general",
		TimeRange: TimeRange{Since: "2024-02-01", Until: "2024-01-01"},
	})

	assert.Equal(t, slerrors.ErrCodeInvalidInput, slerrors.GetCode(err))
}

func TestService_ChannelConversations_Expanded(t *testing.T) {
	// Given: only reply 103 is in range, expansion pulls in its thread
	svc := newTestService(newFixture(), nil)

	resp, err := svc.ChannelConversations(context.Background(), ChannelConversationsRequest{
		Channel:   "general",
		TimeRange: TimeRange{Since: "103", Until: "104"},
		Window:    1,
	})

	// Then: the real root replaces any placeholder, with 102 and 103 beneath it
	require.NoError(t, err)
	msgs := resp.Channels["C1"].Messages
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Placeholder)
	assert.Equal(t, "100.000000", msgs[0].TS)
	require.Len(t, msgs[0].Replies, 2)
	assert.Equal(t, "102.000000", msgs[0].Replies[0].TS)
	assert.Equal(t, "103.000000", msgs[0].Replies[1].TS)
}

func TestService_UserConversations(t *testing.T) {
	st := newFixture()
	svc := newTestService(st, nil)

	resp, err := svc.UserConversations(context.Background(), UserConversationsRequest{User: "@alice", Channel: "general"})

	require.NoError(t, err)
	assert.Equal(t, []string{"U1"}, st.lastFilter.UserIDs)
	assert.Equal(t, []string{"C1"}, st.lastFilter.ChannelIDs)
	assert.NotContains(t, resp.Channels, "C2")
	assert.Equal(t, map[string]conversation.UserOut{
		"U1": {UserName: "alice", RealName: "Alice Liddell", TZ: "Europe/London"},
	}, resp.Users)
}

func TestService_UserConversations_BotsExcludedByDefault(t *testing.T) {
	svc := newTestService(newFixture(), nil)

	_, err := svc.UserConversations(context.Background(), UserConversationsRequest{User: "deploybot"})
	assert.Equal(t, slerrors.ErrCodeNotFound, slerrors.GetCode(err))

	_, err = svc.UserConversations(context.Background(), UserConversationsRequest{User: "deploybot", IncludeBots: true})
	assert.NoError(t, err)
}

// =============================================================================
// ThreadMessages
// =============================================================================

func TestService_ThreadMessages(t *testing.T) {
	svc := newTestService(newFixture(), nil)

	resp, err := svc.ThreadMessages(context.Background(), ThreadRequest{Channel: "general", ThreadTS: "100"})

	require.NoError(t, err)
	assert.Equal(t, "C1", resp.ChannelID)
	require.Len(t, resp.Messages, 4)
	assert.Equal(t, "100.000000", resp.Messages[0].TS)
	require.NotNil(t, resp.Messages[0].ReplyCount)
	assert.Equal(t, 3, *resp.Messages[0].ReplyCount)
	for _, m := range resp.Messages[1:] {
		assert.Nil(t, m.ReplyCount)
		assert.Equal(t, "100.000000", m.ThreadTS)
		assert.Empty(t, m.ChannelID)
	}
	assert.Len(t, resp.Users, 2)
}

func TestService_ThreadMessages_ReplyTSSelectsItsThread(t *testing.T) {
	svc := newTestService(newFixture(), nil)

	// When: asking for a thread by the ts of reply 102
	resp, err := svc.ThreadMessages(context.Background(), ThreadRequest{Channel: "general", ThreadTS: "102"})

	// Then: the whole thread comes back with the root first
	require.NoError(t, err)
	require.Len(t, resp.Messages, 4)
	assert.Equal(t, "100.000000", resp.Messages[0].TS)
	require.NotNil(t, resp.Messages[0].ReplyCount)
	assert.Equal(t, 3, *resp.Messages[0].ReplyCount)
}

func TestService_ThreadMessages_RootlessThread(t *testing.T) {
	svc := newTestService(newFixture(), nil)

	resp, err := svc.ThreadMessages(context.Background(), ThreadRequest{Channel: "random", ThreadTS: "500"})

	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "501.000000", resp.Messages[0].TS)
}

func TestService_ThreadMessages_NotFound(t *testing.T) {
	svc := newTestService(newFixture(), nil)

	_, err := svc.ThreadMessages(context.Background(), ThreadRequest{Channel: "general", ThreadTS: "42"})

	assert.ErrorIs(t, err, slerrors.ErrNotFound)
}

// =============================================================================
// Search
// =============================================================================

func searchFixture() (*memStore, *FakeSearcher) {
	st := newFixture()
	return st, &FakeSearcher{Results: []*search.SearchResult{
		{Message: st.msgs[2].Clone(), Score: 0.03},
		{Message: st.msgs[0].Clone(), Score: 0.02},
	}}
}

func TestService_Search_Flat(t *testing.T) {
	// Given: a searcher returning reply 102 then root 100
	st, searcher := searchFixture()
	svc := newTestService(st, searcher)

	// When: searching with user and channel filters
	resp, err := svc.Search(context.Background(), SearchRequest{
		Query:     "rollback",
		Users:     []string{"alice"},
		Channels:  []string{"#general"},
		TimeRange: TimeRange{Since: "1D"},
		Limit:     5,
	})

	// Then: filters were resolved and results keep rank order with scores
	require.NoError(t, err)
	assert.Equal(t, "rollback", searcher.query)
	assert.Equal(t, []string{"U1"}, searcher.opts.Filter.UserIDs)
	assert.Equal(t, []string{"C1"}, searcher.opts.Filter.ChannelIDs)
	assert.Equal(t, at(10_000).AddDate(0, 0, -1), searcher.opts.Filter.Since)
	assert.Equal(t, 0.5, searcher.opts.SemanticWeight)
	assert.Equal(t, 5, searcher.opts.Limit)

	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "102.000000", resp.Messages[0].TS)
	assert.Equal(t, "C1", resp.Messages[0].ChannelID)
	require.NotNil(t, resp.Messages[0].Score)
	assert.Equal(t, 0.03, *resp.Messages[0].Score)
	assert.Nil(t, resp.Channels)
	assert.Contains(t, resp.Users, "U1")
}

func TestService_Search_Tree(t *testing.T) {
	st, searcher := searchFixture()
	svc := newTestService(st, searcher)

	resp, err := svc.Search(context.Background(), SearchRequest{Query: "rollback", Tree: true, SemanticWeight: ptr(0.0)})

	require.NoError(t, err)
	assert.Equal(t, 0.0, searcher.opts.SemanticWeight)
	assert.Nil(t, resp.Messages)
	msgs := resp.Channels["C1"].Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, "100.000000", msgs[0].TS)
	require.Len(t, msgs[0].Replies, 1)
	assert.Equal(t, "102.000000", msgs[0].Replies[0].TS)

	// And: the root reports its stored thread size, not the matched replies
	require.NotNil(t, msgs[0].ReplyCount)
	assert.Equal(t, 3, *msgs[0].ReplyCount)
}

func TestService_Search_AmbiguousUser(t *testing.T) {
	st, searcher := searchFixture()
	svc := newTestService(st, searcher)

	_, err := svc.Search(context.Background(), SearchRequest{Query: "q", Users: []string{"dobbs"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, slerrors.ErrAmbiguousMatch)
	assert.Contains(t, err.Error(), "@bob (Bob Dobbs), @robert (Robert Dobbs)")
	assert.Empty(t, searcher.query)
}

func TestService_Search_PropagatesEngineError(t *testing.T) {
	searcher := &FakeSearcher{Err: slerrors.UpstreamError("lexical leg", nil)}
	svc := newTestService(newFixture(), searcher)

	_, err := svc.Search(context.Background(), SearchRequest{Query: "q"})

	assert.ErrorIs(t, err, slerrors.ErrUpstreamFailure)
}

// =============================================================================
// Directory
// =============================================================================

func TestService_ListChannels(t *testing.T) {
	st := newFixture()
	st.channels = append(st.channels, &store.Channel{ID: "C0", Name: "announcements"})
	svc := newTestService(st, nil)

	channels, err := svc.ListChannels(context.Background())

	require.NoError(t, err)
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"announcements", "general", "random"}, names)
}

func TestService_LookupUser(t *testing.T) {
	svc := newTestService(newFixture(), nil)

	u, err := svc.LookupUser(context.Background(), "Alice Liddell", false)
	require.NoError(t, err)
	assert.Equal(t, "U1", u.ID)

	ch, err := svc.ResolveChannel(context.Background(), "#general")
	require.NoError(t, err)
	assert.Equal(t, "everything", ch.Topic)
}
