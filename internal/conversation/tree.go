// Package conversation assembles flat message lists into per-channel
// thread trees and projects them into response records.
//
// The builder is a single pass over the input in chronological order.
// State lives in a keyed arena (channel -> root ts -> slot) so a
// placeholder root synthesized for an early reply can be replaced in place
// when the real root arrives, keeping the slot's position and replies.
package conversation

import (
	"log/slog"
	"sort"

	"github.com/Aman-CERP/slackmcp/internal/slackts"
	"github.com/Aman-CERP/slackmcp/internal/store"
)

// PlaceholderText is the text of a root synthesized for replies whose real
// root was not part of the input.
const PlaceholderText = "root message not in window"

// UnknownUser is the author recorded on a placeholder root.
const UnknownUser = "unknown"

// Node is one message in native form, ready for projection.
type Node struct {
	TS          string // native "seconds.micros"
	ChannelID   string
	ThreadTS    string // native; empty when unthreaded
	UserID      string // empty when the message has no author
	Text        string
	Files       []byte
	Attachments []byte
	Permalink   string

	// ReplyCount and Replies are only ever set on roots.
	ReplyCount  *int
	Replies     []*Node
	Placeholder bool
}

// IsRoot reports whether n starts a thread or is unthreaded.
func (n *Node) IsRoot() bool {
	return n.ThreadTS == "" || n.ThreadTS == n.TS
}

// ChannelNode holds one channel's roots in first-seen order.
type ChannelNode struct {
	ID    string
	Roots []*Node
}

// Tree is a built conversation tree.
type Tree struct {
	channels map[string]*ChannelNode
	slots    map[string]map[int64]int // channel -> root ts micros -> index in Roots
	users    map[string]struct{}
}

// Channel returns the node for id, or nil.
func (t *Tree) Channel(id string) *ChannelNode {
	return t.channels[id]
}

// Channels returns the channel ids in the tree, sorted.
func (t *Tree) Channels() []string {
	ids := make([]string, 0, len(t.channels))
	for id := range t.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InvolvedUsers returns the ids of every message author, sorted.
// Placeholder roots contribute nothing.
func (t *Tree) InvolvedUsers() []string {
	ids := make([]string, 0, len(t.users))
	for id := range t.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of nodes in the tree, replies included.
func (t *Tree) Len() int {
	n := 0
	for _, ch := range t.channels {
		for _, r := range ch.Roots {
			n += 1 + len(r.Replies)
		}
	}
	return n
}

// BuildOptions control tree construction.
type BuildOptions struct {
	IncludePermalinks bool

	// ReverseChronological marks input ordered newest first; it is then
	// walked back to front so roots are always seen before their replies.
	ReverseChronological bool

	// ReplyCounts holds stored reply counts by thread root. A placeholder
	// root reports its thread's count from here when one is present.
	ReplyCounts map[store.KeyID]int
}

// Builder builds trees. The zero value builds without permalinks.
type Builder struct {
	linker *slackts.Linker
}

// NewBuilder returns a Builder rendering permalinks with linker.
// A nil or disabled linker produces no permalinks.
func NewBuilder(linker *slackts.Linker) *Builder {
	return &Builder{linker: linker}
}

// Build assembles msgs into a tree. Repeated (channel, ts) pairs after the
// first are ignored. The same input always yields the same tree.
func (b *Builder) Build(msgs []*store.Message, opts BuildOptions) *Tree {
	t := &Tree{
		channels: make(map[string]*ChannelNode),
		slots:    make(map[string]map[int64]int),
		users:    make(map[string]struct{}),
	}
	seen := make(map[store.KeyID]bool, len(msgs))

	for i := range msgs {
		m := msgs[i]
		if opts.ReverseChronological {
			m = msgs[len(msgs)-1-i]
		}
		if m == nil {
			continue
		}
		id := m.Key().ID()
		if seen[id] {
			continue
		}
		seen[id] = true

		if m.UserID != nil && *m.UserID != "" {
			t.users[*m.UserID] = struct{}{}
		}

		node := b.node(m, opts.IncludePermalinks)
		if m.IsRoot() {
			t.putRoot(m, node)
		} else {
			t.putReply(m, node, b, opts)
		}
	}
	return t
}

func (t *Tree) channel(id string) (*ChannelNode, map[int64]int) {
	ch, ok := t.channels[id]
	if !ok {
		ch = &ChannelNode{ID: id}
		t.channels[id] = ch
		t.slots[id] = make(map[int64]int)
	}
	return ch, t.slots[id]
}

// putRoot appends a root, or replaces the placeholder occupying its slot
// and takes over that placeholder's replies.
func (t *Tree) putRoot(m *store.Message, node *Node) {
	ch, slots := t.channel(m.ChannelID)
	key := m.TS.UnixMicro()

	idx, ok := slots[key]
	if !ok {
		slots[key] = len(ch.Roots)
		ch.Roots = append(ch.Roots, node)
		return
	}

	prev := ch.Roots[idx]
	node.Replies = prev.Replies
	node.ReplyCount = maxCount(node.ReplyCount, prev.ReplyCount, len(node.Replies))
	ch.Roots[idx] = node
}

// putReply attaches a reply to its root, synthesizing a placeholder root
// when the real one has not been seen.
func (t *Tree) putReply(m *store.Message, node *Node, b *Builder, opts BuildOptions) {
	ch, slots := t.channel(m.ChannelID)
	key := m.ThreadTS.UnixMicro()

	idx, ok := slots[key]
	if !ok {
		count := 1
		if n := opts.ReplyCounts[m.RootKey().ID()]; n > count {
			count = n
		}
		rootTS := slackts.Encode(*m.ThreadTS, false)
		ph := &Node{
			TS:          rootTS,
			ChannelID:   m.ChannelID,
			ThreadTS:    rootTS,
			UserID:      UnknownUser,
			Text:        PlaceholderText,
			ReplyCount:  &count,
			Placeholder: true,
		}
		if opts.IncludePermalinks {
			ph.Permalink = b.permalink(ph)
		}
		idx = len(ch.Roots)
		slots[key] = idx
		ch.Roots = append(ch.Roots, ph)
	}

	root := ch.Roots[idx]
	node.ReplyCount = nil
	node.Replies = nil
	root.Replies = append(root.Replies, node)
	root.ReplyCount = maxCount(root.ReplyCount, nil, len(root.Replies))
}

// maxCount returns a pointer to the largest of a, b and n.
func maxCount(a, b *int, n int) *int {
	best := n
	if a != nil && *a > best {
		best = *a
	}
	if b != nil && *b > best {
		best = *b
	}
	if best == 0 && a == nil && b == nil {
		return nil
	}
	return &best
}

// node converts m to native form.
func (b *Builder) node(m *store.Message, permalinks bool) *Node {
	n := &Node{
		TS:          slackts.Encode(m.TS, false),
		ChannelID:   m.ChannelID,
		Text:        m.Text,
		Files:       m.Files,
		Attachments: m.Attachments,
	}
	if m.ThreadTS != nil {
		n.ThreadTS = slackts.Encode(*m.ThreadTS, false)
	}
	if m.UserID != nil {
		n.UserID = *m.UserID
	}
	if m.IsRoot() && m.ReplyCount != nil {
		c := *m.ReplyCount
		n.ReplyCount = &c
	}
	if permalinks {
		n.Permalink = b.permalink(n)
	}
	return n
}

// permalink renders n's permalink. A timestamp the codec rejects leaves
// the message without one; it is never fatal.
func (b *Builder) permalink(n *Node) string {
	if b == nil || !b.linker.Enabled() {
		return ""
	}
	thread := ""
	if !n.IsRoot() {
		thread = n.ThreadTS
	}
	link, err := b.linker.PermalinkFromNative(n.ChannelID, n.TS, thread)
	if err != nil {
		slog.Debug("permalink skipped",
			slog.String("channel", n.ChannelID),
			slog.String("ts", n.TS),
			slog.String("error", err.Error()))
		return ""
	}
	return link
}

// Flatten converts msgs to nodes in input order without assembling
// threads. Replies are stripped of reply fields as in a tree.
func (b *Builder) Flatten(msgs []*store.Message, permalinks bool) []*Node {
	out := make([]*Node, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		n := b.node(m, permalinks)
		if !m.IsRoot() {
			n.ReplyCount = nil
		}
		out = append(out, n)
	}
	return out
}
