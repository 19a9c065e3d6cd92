package query

import (
	"github.com/Aman-CERP/slackmcp/internal/conversation"
)

// MessageRef identifies one message by channel (id or name) and native ts.
type MessageRef struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// OutputFlags select optional fields in responses.
type OutputFlags struct {
	IncludeFiles      bool `json:"include_files,omitempty"`
	IncludePermalinks bool `json:"include_permalinks,omitempty"`
}

// MessageContextRequest asks for the neighborhood of one or more messages.
type MessageContextRequest struct {
	Messages []MessageRef
	// Window is the per-direction context size; nil uses the default.
	Window *int
	// Limit caps the total messages; 0 uses the default.
	Limit int
	OutputFlags
}

// TimeRange bounds a listing. Both ends accept YYYY-MM-DD, RFC 3339, a
// native ts, or a relative duration such as 7D. Since is inclusive, Until
// exclusive; empty means unbounded.
type TimeRange struct {
	Since string
	Until string
}

// ChannelConversationsRequest lists recent conversations in a channel.
type ChannelConversationsRequest struct {
	Channel string
	TimeRange
	Limit int
	// Window > 0 expands each message through the context planner.
	Window int
	OutputFlags
}

// UserConversationsRequest lists recent conversations a user wrote in,
// optionally within one channel.
type UserConversationsRequest struct {
	User        string
	IncludeBots bool
	Channel     string
	TimeRange
	Limit  int
	Window int
	OutputFlags
}

// ThreadRequest asks for every message of one thread.
type ThreadRequest struct {
	Channel  string
	ThreadTS string
	OutputFlags
}

// SearchRequest is a hybrid search.
type SearchRequest struct {
	Query    string
	Users    []string
	Channels []string
	TimeRange
	// SemanticWeight in [0, 1]; nil uses the default.
	SemanticWeight *float64
	Limit          int
	// Tree returns results assembled into threads instead of a ranked list.
	Tree bool
	OutputFlags
}

// ThreadResponse is a flat, chronological thread, root first.
type ThreadResponse struct {
	ChannelID string                          `json:"channel_id"`
	Messages  []conversation.MessageOut       `json:"messages"`
	Users     map[string]conversation.UserOut `json:"users"`
}

// SearchResponse holds either a ranked list (Messages) or a tree
// (Channels), plus the involved users.
type SearchResponse struct {
	Messages []conversation.MessageOut          `json:"messages,omitempty"`
	Channels map[string]conversation.ChannelOut `json:"channels,omitempty"`
	Users    map[string]conversation.UserOut    `json:"users"`
}

// ChannelInfo is a directory entry for a channel.
type ChannelInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Topic   string `json:"topic,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

// UserInfo is a directory entry for a user.
type UserInfo struct {
	ID          string `json:"id"`
	UserName    string `json:"user_name,omitempty"`
	RealName    string `json:"real_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	TZ          string `json:"tz,omitempty"`
	IsBot       bool   `json:"is_bot,omitempty"`
}
