// Package window expands seed messages into their bounded conversational
// neighborhood: the seed's thread (root, siblings, replies) and nearby
// root-level traffic in the same channel.
//
// Every neighbor gets a signed position relative to its seed: negative
// before it in time, positive after, assigned by dense rank within each
// direction. Only neighbors with |position| <= window survive. A reply's
// thread root is always kept because it defines the thread.
package window

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
	"github.com/Aman-CERP/slackmcp/internal/slackts"
	"github.com/Aman-CERP/slackmcp/internal/store"
)

// Defaults for Config.
const (
	DefaultChannelSpan = 24 * time.Hour
	DefaultMaxWindow   = 50
	DefaultMaxLimit    = 1000

	// maxConcurrentSeeds bounds in-flight storage queries per request.
	maxConcurrentSeeds = 8
)

// Source is the storage the planner reads. store.PostgresStore implements it.
type Source interface {
	MessagesByKey(ctx context.Context, keys []store.MessageKey) ([]*store.Message, error)
	ThreadMessages(ctx context.Context, channelID string, threadTS time.Time) ([]*store.Message, error)
	ChannelRoots(ctx context.Context, q store.ChannelRootsQuery) ([]*store.Message, error)
	ReplyCounts(ctx context.Context, roots []store.MessageKey) (map[store.KeyID]int, error)
}

// Config bounds the planner.
type Config struct {
	// ChannelSpan is the wall-clock distance either side of a root seed
	// searched for channel neighbors.
	ChannelSpan time.Duration
	MaxWindow   int
	MaxLimit    int
}

// DefaultConfig returns the default planner bounds.
func DefaultConfig() Config {
	return Config{
		ChannelSpan: DefaultChannelSpan,
		MaxWindow:   DefaultMaxWindow,
		MaxLimit:    DefaultMaxLimit,
	}
}

// Options are per-request expansion parameters.
type Options struct {
	Window       int
	Limit        int
	IncludeFiles bool
}

// Planner expands seeds. It holds no request state and is safe for
// concurrent use.
type Planner struct {
	src Source
	cfg Config
}

// New returns a Planner reading from src. Zero fields in cfg take defaults.
func New(src Source, cfg Config) *Planner {
	d := DefaultConfig()
	if cfg.ChannelSpan <= 0 {
		cfg.ChannelSpan = d.ChannelSpan
	}
	if cfg.MaxWindow <= 0 {
		cfg.MaxWindow = d.MaxWindow
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = d.MaxLimit
	}
	return &Planner{src: src, cfg: cfg}
}

// Validate checks opts against the planner bounds.
func (p *Planner) Validate(opts Options) error {
	if opts.Window < 0 || opts.Window > p.cfg.MaxWindow {
		return slerrors.InvalidWindow(opts.Window, p.cfg.MaxWindow)
	}
	if opts.Limit < 1 || opts.Limit > p.cfg.MaxLimit {
		return slerrors.InvalidLimit(opts.Limit, p.cfg.MaxLimit)
	}
	return nil
}

// Expand loads the seeds by identity and expands them. Every seed must
// exist; the first missing one is reported as not found.
func (p *Planner) Expand(ctx context.Context, seeds []store.MessageKey, opts Options) ([]*store.Message, error) {
	if err := p.Validate(opts); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, slerrors.ValidationError("at least one message is required", nil)
	}

	loaded, err := p.src.MessagesByKey(ctx, seeds)
	if err != nil {
		return nil, err
	}

	found := make(map[store.KeyID]bool, len(loaded))
	for _, m := range loaded {
		found[m.Key().ID()] = true
	}
	for _, k := range seeds {
		if !found[k.ID()] {
			return nil, slerrors.NotFound("message", fmt.Sprintf("%s/%s", k.ChannelID, slackts.Encode(k.TS, false)))
		}
	}

	return p.ExpandMessages(ctx, loaded, opts)
}

// neighborhood holds what was fetched for one seed.
type neighborhood struct {
	thread  []*store.Message
	channel []*store.Message
}

// ExpandMessages expands already loaded seeds. The result is de-duplicated
// by (channel, ts), ordered newest first and truncated to opts.Limit.
// Thread roots in the result carry their total stored reply count.
func (p *Planner) ExpandMessages(ctx context.Context, seeds []*store.Message, opts Options) ([]*store.Message, error) {
	if err := p.Validate(opts); err != nil {
		return nil, err
	}
	seeds = uniqueMessages(seeds)

	hoods := make([]neighborhood, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSeeds)

	for i, seed := range seeds {
		g.Go(func() error {
			msgs, err := p.threadNeighbors(gctx, seed, opts.Window)
			if err != nil {
				return err
			}
			hoods[i].thread = msgs
			return nil
		})

		if seed.IsRoot() && opts.Window > 0 {
			g.Go(func() error {
				msgs, err := p.channelNeighbors(gctx, seed, opts.Window)
				if err != nil {
					return err
				}
				hoods[i].channel = msgs
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in seed order; the final sort, not arrival order, fixes output.
	seen := make(map[store.KeyID]bool)
	var out []*store.Message
	add := func(m *store.Message) {
		id := m.Key().ID()
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, m.Clone())
	}
	for i, seed := range seeds {
		add(seed)
		for _, m := range hoods[i].thread {
			add(m)
		}
		for _, m := range hoods[i].channel {
			add(m)
		}
	}

	if _, err := p.AttachReplyCounts(ctx, out); err != nil {
		return nil, err
	}

	SortNewestFirst(out)
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}

	if !opts.IncludeFiles {
		for _, m := range out {
			m.Files = nil
			m.Attachments = nil
		}
	}

	slog.Debug("context expanded",
		slog.Int("seeds", len(seeds)),
		slog.Int("window", opts.Window),
		slog.Int("messages", len(out)))

	return out, nil
}

// threadNeighbors returns the seed's thread root plus siblings or replies
// within the window.
func (p *Planner) threadNeighbors(ctx context.Context, seed *store.Message, window int) ([]*store.Message, error) {
	rootKey := seed.RootKey()

	if window == 0 {
		if seed.IsRoot() {
			return nil, nil
		}
		// Only the mandatory root is needed.
		return p.src.MessagesByKey(ctx, []store.MessageKey{rootKey})
	}

	thread, err := p.src.ThreadMessages(ctx, rootKey.ChannelID, rootKey.TS)
	if err != nil {
		return nil, err
	}

	var root *store.Message
	members := make([]*store.Message, 0, len(thread))
	for _, m := range thread {
		if m.ChannelID != rootKey.ChannelID {
			continue
		}
		if m.TS.Equal(rootKey.TS) {
			root = m
			continue
		}
		members = append(members, m)
	}

	out := Within(seed.TS, members, window)
	if root != nil {
		out = append(out, root)
	}
	return out, nil
}

// channelNeighbors returns root-level messages around a root seed.
func (p *Planner) channelNeighbors(ctx context.Context, seed *store.Message, window int) ([]*store.Message, error) {
	nearby, err := p.src.ChannelRoots(ctx, store.ChannelRootsQuery{
		ChannelID: seed.ChannelID,
		Around:    seed.TS,
		Span:      p.cfg.ChannelSpan,
		PerSide:   window,
	})
	if err != nil {
		return nil, err
	}

	from, to := seed.TS.Add(-p.cfg.ChannelSpan), seed.TS.Add(p.cfg.ChannelSpan)
	var roots []*store.Message
	for _, m := range nearby {
		if m.ChannelID != seed.ChannelID || !m.IsRoot() {
			continue
		}
		if m.TS.Before(from) || m.TS.After(to) {
			continue
		}
		roots = append(roots, m)
	}
	return Within(seed.TS, roots, window), nil
}

// AttachReplyCounts sets ReplyCount on every root in msgs that has replies
// and clears it on everything else. Counts come from storage, so they
// include replies outside msgs. The returned map holds the stored count of
// every thread msgs touches, keyed by root, including threads whose root is
// not in msgs.
func (p *Planner) AttachReplyCounts(ctx context.Context, msgs []*store.Message) (map[store.KeyID]int, error) {
	seen := make(map[store.KeyID]bool)
	var roots []store.MessageKey
	for _, m := range msgs {
		k := m.RootKey()
		if seen[k.ID()] {
			continue
		}
		seen[k.ID()] = true
		roots = append(roots, k)
	}
	if len(roots) == 0 {
		return map[store.KeyID]int{}, nil
	}

	counts, err := p.src.ReplyCounts(ctx, roots)
	if err != nil {
		return nil, err
	}

	for _, m := range msgs {
		if !m.IsRoot() {
			m.ReplyCount = nil
			continue
		}
		if n := counts[m.Key().ID()]; n > 0 {
			m.ReplyCount = &n
		} else {
			m.ReplyCount = nil
		}
	}
	return counts, nil
}

// Within returns the messages whose signed position relative to anchor is
// within [-window, +window]. Positions are dense ranks by timestamp in each
// direction, so messages sharing a timestamp share a position. Messages at
// the anchor instant have position 0.
func Within(anchor time.Time, msgs []*store.Message, window int) []*store.Message {
	var before, after, at []*store.Message
	for _, m := range msgs {
		switch {
		case m.TS.Before(anchor):
			before = append(before, m)
		case m.TS.After(anchor):
			after = append(after, m)
		default:
			at = append(at, m)
		}
	}

	sort.SliceStable(before, func(i, j int) bool { return before[i].TS.After(before[j].TS) })
	sort.SliceStable(after, func(i, j int) bool { return after[i].TS.Before(after[j].TS) })

	out := append([]*store.Message(nil), at...)
	out = append(out, denseTake(before, window)...)
	out = append(out, denseTake(after, window)...)
	return out
}

// denseTake keeps the prefix of sorted whose dense rank is at most n.
func denseTake(sorted []*store.Message, n int) []*store.Message {
	rank := 0
	for i, m := range sorted {
		if i == 0 || !m.TS.Equal(sorted[i-1].TS) {
			rank++
		}
		if rank > n {
			return sorted[:i]
		}
	}
	return sorted
}

// SortNewestFirst orders messages reverse chronologically, ties by channel id.
func SortNewestFirst(msgs []*store.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].TS.Equal(msgs[j].TS) {
			return msgs[i].TS.After(msgs[j].TS)
		}
		return msgs[i].ChannelID < msgs[j].ChannelID
	})
}

func uniqueMessages(msgs []*store.Message) []*store.Message {
	seen := make(map[store.KeyID]bool, len(msgs))
	out := make([]*store.Message, 0, len(msgs))
	for _, m := range msgs {
		id := m.Key().ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, m)
	}
	return out
}
