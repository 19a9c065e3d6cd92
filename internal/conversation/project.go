package conversation

import (
	"encoding/json"

	"github.com/Aman-CERP/slackmcp/internal/store"
)

// MessageOut is the serialized form of a message. Optional fields are
// dropped by projection according to the request flags.
type MessageOut struct {
	TS          string          `json:"ts"`
	ChannelID   string          `json:"channel_id,omitempty"`
	ThreadTS    string          `json:"thread_ts,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	Text        string          `json:"text"`
	Files       json.RawMessage `json:"files,omitempty"`
	Attachments json.RawMessage `json:"attachments,omitempty"`
	Permalink   string          `json:"permalink,omitempty"`
	ReplyCount  *int            `json:"reply_count,omitempty"`
	Replies     []MessageOut    `json:"replies,omitempty"`
	Placeholder bool            `json:"placeholder,omitempty"`
	Score       *float64        `json:"score,omitempty"`
}

// ChannelOut is one channel of a tree response.
type ChannelOut struct {
	Name     string       `json:"name,omitempty"`
	Messages []MessageOut `json:"messages"`
}

// UserOut is the directory record of an involved user.
type UserOut struct {
	UserName    string `json:"user_name,omitempty"`
	RealName    string `json:"real_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	TZ          string `json:"tz,omitempty"`
	IsBot       bool   `json:"is_bot,omitempty"`
}

// Response is the tree response: channel id -> channel node, plus the
// users who wrote any of the messages. encoding/json writes map keys
// sorted, so output order is stable.
type Response struct {
	Channels map[string]ChannelOut `json:"channels"`
	Users    map[string]UserOut    `json:"users"`
}

// ProjectOptions select the optional fields kept in the output.
type ProjectOptions struct {
	IncludeFiles      bool
	IncludePermalinks bool
}

// Directory supplies names for ids found in a tree. Missing entries are
// tolerated; the id alone is shown.
type Directory struct {
	Channels map[string]*store.Channel
	Users    map[string]*store.User
}

// Project converts a built tree into a Response. Channel ids inside
// messages are omitted since the channel map already carries them.
func Project(t *Tree, opts ProjectOptions, dir Directory) Response {
	resp := Response{
		Channels: make(map[string]ChannelOut, len(t.channels)),
		Users:    UsersOut(t.InvolvedUsers(), dir.Users),
	}

	for _, id := range t.Channels() {
		ch := t.channels[id]
		out := ChannelOut{Messages: make([]MessageOut, 0, len(ch.Roots))}
		if c, ok := dir.Channels[id]; ok && c != nil {
			out.Name = c.Name
		}
		for _, root := range ch.Roots {
			mo := ProjectNode(root, opts)
			mo.ChannelID = ""
			for i := range mo.Replies {
				mo.Replies[i].ChannelID = ""
			}
			out.Messages = append(out.Messages, mo)
		}
		resp.Channels[id] = out
	}
	return resp
}

// ProjectNode converts one node, and its replies, per opts.
func ProjectNode(n *Node, opts ProjectOptions) MessageOut {
	out := MessageOut{
		TS:          n.TS,
		ChannelID:   n.ChannelID,
		ThreadTS:    n.ThreadTS,
		UserID:      n.UserID,
		Text:        n.Text,
		Placeholder: n.Placeholder,
	}
	if opts.IncludeFiles {
		out.Files = nonEmptyJSON(n.Files)
		out.Attachments = nonEmptyJSON(n.Attachments)
	}
	if opts.IncludePermalinks {
		out.Permalink = n.Permalink
	}
	if !n.IsRoot() {
		return out
	}

	if n.ReplyCount != nil {
		c := *n.ReplyCount
		out.ReplyCount = &c
	}
	if len(n.Replies) > 0 {
		out.Replies = make([]MessageOut, 0, len(n.Replies))
		for _, r := range n.Replies {
			out.Replies = append(out.Replies, ProjectNode(r, opts))
		}
	}
	return out
}

// ProjectNodes converts a flat node list per opts.
func ProjectNodes(nodes []*Node, opts ProjectOptions) []MessageOut {
	out := make([]MessageOut, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, ProjectNode(n, opts))
	}
	return out
}

// UsersOut builds the users map for ids. Ids missing from users map to an
// empty record so callers still see who was involved.
func UsersOut(ids []string, users map[string]*store.User) map[string]UserOut {
	out := make(map[string]UserOut, len(ids))
	for _, id := range ids {
		u, ok := users[id]
		if !ok || u == nil {
			out[id] = UserOut{}
			continue
		}
		out[id] = UserOut{
			UserName:    u.UserName,
			RealName:    u.RealName,
			DisplayName: u.DisplayName,
			TZ:          u.TZ,
			IsBot:       u.IsBot,
		}
	}
	return out
}

// nonEmptyJSON drops SQL NULL and JSON null.
func nonEmptyJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.RawMessage(raw)
}
