// Package query serves the agent-facing request shapes: message context,
// channel and user conversations, threads, hybrid search and directory
// lookups. It resolves references, drives the planner and search engine,
// and projects the results into responses.
package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Aman-CERP/slackmcp/internal/conversation"
	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
	"github.com/Aman-CERP/slackmcp/internal/resolve"
	"github.com/Aman-CERP/slackmcp/internal/search"
	"github.com/Aman-CERP/slackmcp/internal/slackts"
	"github.com/Aman-CERP/slackmcp/internal/store"
	"github.com/Aman-CERP/slackmcp/internal/window"
)

// Store is the storage the service reads. store.PostgresStore implements it.
type Store interface {
	window.Source
	resolve.Directory
	RecentMessages(ctx context.Context, f store.Filter, limit int) ([]*store.Message, error)
	UsersByID(ctx context.Context, ids []string) (map[string]*store.User, error)
}

// Searcher runs hybrid searches. search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.SearchOptions) ([]*search.SearchResult, error)
}

// Config holds request defaults.
type Config struct {
	Planner               window.Config
	DefaultWindow         int
	DefaultLimit          int
	DefaultSemanticWeight float64
}

// DefaultConfig returns the default request settings.
func DefaultConfig() Config {
	return Config{
		Planner:               window.DefaultConfig(),
		DefaultWindow:         5,
		DefaultLimit:          200,
		DefaultSemanticWeight: 0.5,
	}
}

// Service answers agent requests. It holds no request state and is safe
// for concurrent use.
type Service struct {
	store    Store
	searcher Searcher
	resolver *resolve.Resolver
	planner  *window.Planner
	builder  *conversation.Builder
	cfg      Config
	now      func() time.Time
}

// NewService wires a Service. linker renders permalinks and may be nil.
func NewService(st Store, searcher Searcher, linker *slackts.Linker, cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultConfig().DefaultLimit
	}
	return &Service{
		store:    st,
		searcher: searcher,
		resolver: resolve.New(st),
		planner:  window.New(st, cfg.Planner),
		builder:  conversation.NewBuilder(linker),
		cfg:      cfg,
		now:      time.Now,
	}
}

// MessageContext returns the neighborhood of the referenced messages as a
// tree response.
func (s *Service) MessageContext(ctx context.Context, req MessageContextRequest) (*conversation.Response, error) {
	if len(req.Messages) == 0 {
		return nil, slerrors.ValidationError("at least one message is required", nil)
	}

	opts := window.Options{
		Window:       s.cfg.DefaultWindow,
		Limit:        s.limitOr(req.Limit),
		IncludeFiles: req.IncludeFiles,
	}
	if req.Window != nil {
		opts.Window = *req.Window
	}
	if err := s.planner.Validate(opts); err != nil {
		return nil, err
	}

	keys := make([]store.MessageKey, 0, len(req.Messages))
	for _, ref := range req.Messages {
		ch, err := s.resolver.ResolveChannel(ctx, ref.Channel)
		if err != nil {
			return nil, err
		}
		ts, err := slackts.Decode(ref.TS)
		if err != nil {
			return nil, err
		}
		keys = append(keys, store.MessageKey{ChannelID: ch.ID, TS: ts})
	}

	msgs, err := s.planner.Expand(ctx, keys, opts)
	if err != nil {
		return nil, err
	}
	return s.treeResponse(ctx, msgs, req.OutputFlags)
}

// ChannelConversations returns recent conversations in one channel.
func (s *Service) ChannelConversations(ctx context.Context, req ChannelConversationsRequest) (*conversation.Response, error) {
	ch, err := s.resolver.ResolveChannel(ctx, req.Channel)
	if err != nil {
		return nil, err
	}
	f, err := s.filter(req.TimeRange)
	if err != nil {
		return nil, err
	}
	f.ChannelIDs = []string{ch.ID}
	return s.conversations(ctx, f, req.Limit, req.Window, req.OutputFlags)
}

// UserConversations returns recent conversations a user wrote in.
func (s *Service) UserConversations(ctx context.Context, req UserConversationsRequest) (*conversation.Response, error) {
	u, err := s.resolver.ResolveUser(ctx, req.User, resolve.UserOptions{IncludeBots: req.IncludeBots})
	if err != nil {
		return nil, err
	}
	f, err := s.filter(req.TimeRange)
	if err != nil {
		return nil, err
	}
	f.UserIDs = []string{u.ID}
	if req.Channel != "" {
		ch, err := s.resolver.ResolveChannel(ctx, req.Channel)
		if err != nil {
			return nil, err
		}
		f.ChannelIDs = []string{ch.ID}
	}
	return s.conversations(ctx, f, req.Limit, req.Window, req.OutputFlags)
}

func (s *Service) conversations(ctx context.Context, f store.Filter, limit, win int, flags OutputFlags) (*conversation.Response, error) {
	opts := window.Options{Window: win, Limit: s.limitOr(limit), IncludeFiles: flags.IncludeFiles}
	if err := s.planner.Validate(opts); err != nil {
		return nil, err
	}

	msgs, err := s.store.RecentMessages(ctx, f, opts.Limit)
	if err != nil {
		return nil, err
	}
	if opts.Window > 0 && len(msgs) > 0 {
		msgs, err = s.planner.ExpandMessages(ctx, msgs, opts)
		if err != nil {
			return nil, err
		}
	}
	return s.treeResponse(ctx, msgs, flags)
}

// ThreadMessages returns one thread, chronological, root first. The root
// carries the number of replies returned. A reply's ts selects the thread
// that reply belongs to.
func (s *Service) ThreadMessages(ctx context.Context, req ThreadRequest) (*ThreadResponse, error) {
	ch, err := s.resolver.ResolveChannel(ctx, req.Channel)
	if err != nil {
		return nil, err
	}
	threadTS, err := slackts.Decode(req.ThreadTS)
	if err != nil {
		return nil, err
	}

	msgs, err := s.store.ThreadMessages(ctx, ch.ID, threadTS)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 1 && msgs[0].IsReply() && msgs[0].TS.Equal(threadTS) {
		// threadTS named a reply; load the thread it belongs to.
		threadTS = *msgs[0].ThreadTS
		msgs, err = s.store.ThreadMessages(ctx, ch.ID, threadTS)
		if err != nil {
			return nil, err
		}
	}
	if len(msgs) == 0 {
		return nil, slerrors.NotFound("thread", fmt.Sprintf("%s/%s", ch.ID, slackts.Encode(threadTS, false)))
	}

	for _, m := range msgs {
		if m.IsRoot() && m.TS.Equal(threadTS) {
			n := len(msgs) - 1
			m.ReplyCount = &n
		}
	}

	nodes := s.builder.Flatten(msgs, req.IncludePermalinks)
	out := conversation.ProjectNodes(nodes, projectOptions(req.OutputFlags))
	for i := range out {
		out[i].ChannelID = ""
	}
	users, err := s.usersOut(ctx, involvedUsers(msgs))
	if err != nil {
		return nil, err
	}
	return &ThreadResponse{ChannelID: ch.ID, Messages: out, Users: users}, nil
}

// Search runs a hybrid search. Users and channels are resolved by id or
// name first; any failed resolution fails the request.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if s.searcher == nil {
		return nil, slerrors.InternalError("search engine is not configured", nil)
	}

	f, err := s.filter(req.TimeRange)
	if err != nil {
		return nil, err
	}
	for _, ref := range req.Users {
		u, err := s.resolver.ResolveUser(ctx, ref, resolve.UserOptions{IncludeBots: true})
		if err != nil {
			return nil, err
		}
		f.UserIDs = append(f.UserIDs, u.ID)
	}
	for _, ref := range req.Channels {
		ch, err := s.resolver.ResolveChannel(ctx, ref)
		if err != nil {
			return nil, err
		}
		f.ChannelIDs = append(f.ChannelIDs, ch.ID)
	}

	weight := s.cfg.DefaultSemanticWeight
	if req.SemanticWeight != nil {
		weight = *req.SemanticWeight
	}

	results, err := s.searcher.Search(ctx, req.Query, search.SearchOptions{
		Filter:         f,
		SemanticWeight: weight,
		Limit:          req.Limit,
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]*store.Message, len(results))
	for i, r := range results {
		msgs[i] = r.Message
	}

	if req.Tree {
		tree, err := s.treeResponse(ctx, newestFirst(msgs), req.OutputFlags)
		if err != nil {
			return nil, err
		}
		return &SearchResponse{Channels: tree.Channels, Users: tree.Users}, nil
	}

	nodes := s.builder.Flatten(msgs, req.IncludePermalinks)
	out := conversation.ProjectNodes(nodes, projectOptions(req.OutputFlags))
	for i := range out {
		score := results[i].Score
		out[i].Score = &score
	}
	users, err := s.usersOut(ctx, involvedUsers(msgs))
	if err != nil {
		return nil, err
	}
	return &SearchResponse{Messages: out, Users: users}, nil
}

// ListChannels returns every channel, sorted by name.
func (s *Service) ListChannels(ctx context.Context) ([]ChannelInfo, error) {
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelInfo, 0, len(channels))
	for _, c := range channels {
		out = append(out, ChannelInfo{ID: c.ID, Name: c.Name, Topic: c.Topic, Purpose: c.Purpose})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ResolveChannel resolves a channel reference to its directory entry.
func (s *Service) ResolveChannel(ctx context.Context, ref string) (*ChannelInfo, error) {
	c, err := s.resolver.ResolveChannel(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &ChannelInfo{ID: c.ID, Name: c.Name, Topic: c.Topic, Purpose: c.Purpose}, nil
}

// LookupUser resolves a user reference to its directory entry.
func (s *Service) LookupUser(ctx context.Context, ref string, includeBots bool) (*UserInfo, error) {
	u, err := s.resolver.ResolveUser(ctx, ref, resolve.UserOptions{IncludeBots: includeBots})
	if err != nil {
		return nil, err
	}
	return &UserInfo{
		ID:          u.ID,
		UserName:    u.UserName,
		RealName:    u.RealName,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		TZ:          u.TZ,
		IsBot:       u.IsBot,
	}, nil
}

// treeResponse builds and projects msgs, which must be newest first.
// Roots report stored reply counts, not just the replies present in msgs.
func (s *Service) treeResponse(ctx context.Context, msgs []*store.Message, flags OutputFlags) (*conversation.Response, error) {
	counts, err := s.planner.AttachReplyCounts(ctx, msgs)
	if err != nil {
		return nil, err
	}
	tree := s.builder.Build(msgs, conversation.BuildOptions{
		IncludePermalinks:    flags.IncludePermalinks,
		ReverseChronological: true,
		ReplyCounts:          counts,
	})

	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	dir := conversation.Directory{Channels: make(map[string]*store.Channel, len(channels))}
	for _, c := range channels {
		dir.Channels[c.ID] = c
	}
	if ids := tree.InvolvedUsers(); len(ids) > 0 {
		dir.Users, err = s.store.UsersByID(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	resp := conversation.Project(tree, projectOptions(flags), dir)
	return &resp, nil
}

func (s *Service) usersOut(ctx context.Context, ids []string) (map[string]conversation.UserOut, error) {
	if len(ids) == 0 {
		return map[string]conversation.UserOut{}, nil
	}
	users, err := s.store.UsersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	return conversation.UsersOut(ids, users), nil
}

// filter parses a time range into a store filter.
func (s *Service) filter(tr TimeRange) (store.Filter, error) {
	now := s.now()
	since, err := slackts.ParseSince(tr.Since, now)
	if err != nil {
		return store.Filter{}, err
	}
	until, err := slackts.ParseSince(tr.Until, now)
	if err != nil {
		return store.Filter{}, err
	}
	if !since.IsZero() && !until.IsZero() && !since.Before(until) {
		return store.Filter{}, slerrors.ValidationError(
			fmt.Sprintf("since (%s) must be before until (%s)", tr.Since, tr.Until), nil)
	}
	return store.Filter{Since: since, Until: until}, nil
}

func (s *Service) limitOr(limit int) int {
	if limit == 0 {
		return s.cfg.DefaultLimit
	}
	return limit
}

func projectOptions(f OutputFlags) conversation.ProjectOptions {
	return conversation.ProjectOptions{
		IncludeFiles:      f.IncludeFiles,
		IncludePermalinks: f.IncludePermalinks,
	}
}

// involvedUsers returns the distinct author ids of msgs, sorted.
func involvedUsers(msgs []*store.Message) []string {
	seen := make(map[string]struct{})
	for _, m := range msgs {
		if m.UserID != nil && *m.UserID != "" {
			seen[*m.UserID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// newestFirst returns a newest-first copy of msgs for tree building.
func newestFirst(msgs []*store.Message) []*store.Message {
	out := make([]*store.Message, len(msgs))
	copy(out, msgs)
	window.SortNewestFirst(out)
	return out
}
