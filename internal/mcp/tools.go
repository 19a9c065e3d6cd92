package mcp

import (
	"github.com/Aman-CERP/slackmcp/internal/query"
)

// Tool names.
const (
	ToolMessageContext       = "get_message_context"
	ToolChannelConversations = "get_channel_conversations"
	ToolUserConversations    = "get_user_conversations"
	ToolThread               = "get_thread"
	ToolSearchMessages       = "search_messages"
	ToolListChannels         = "list_channels"
	ToolLookupChannel        = "lookup_channel"
	ToolLookupUser           = "lookup_user"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var toolInfos = []ToolInfo{
	{
		Name:        ToolMessageContext,
		Description: "Get the conversation around one or more Slack messages. Returns each message with its thread root and the closest replies, plus nearby top-level messages in the channel, grouped by channel and thread.",
	},
	{
		Name:        ToolChannelConversations,
		Description: "List recent conversations in a channel, newest first, grouped into threads. Accepts a time range and an optional context window to pull in surrounding messages.",
	},
	{
		Name:        ToolUserConversations,
		Description: "List recent conversations a user took part in, optionally restricted to one channel. Users may be given by id, @handle, real name or display name.",
	},
	{
		Name:        ToolThread,
		Description: "Get every message of one thread in chronological order, root first.",
	},
	{
		Name:        ToolSearchMessages,
		Description: "Search Slack messages by meaning and keywords. semantic_weight 1 is pure semantic search, 0 is pure keyword search, values in between blend both rankings. Filter by users, channels and time range.",
	},
	{
		Name:        ToolListChannels,
		Description: "List every channel with its topic and purpose.",
	},
	{
		Name:        ToolLookupChannel,
		Description: "Resolve a channel id or #name to its directory entry.",
	},
	{
		Name:        ToolLookupUser,
		Description: "Resolve a user id, @handle, real name or display name to its directory entry.",
	},
}

// MessageRefInput identifies one message.
type MessageRefInput struct {
	Channel string `json:"channel" jsonschema:"channel id or name, e.g. C0123ABCD or #general"`
	TS      string `json:"ts" jsonschema:"message timestamp, e.g. 1700000000.123456 or p1700000000123456"`
}

// MessageContextInput defines the input schema for get_message_context.
type MessageContextInput struct {
	Messages          []MessageRefInput `json:"messages" jsonschema:"messages to fetch context for"`
	Window            *int              `json:"window,omitempty" jsonschema:"context size per direction, 0 to 50, default 5"`
	Limit             int               `json:"limit,omitempty" jsonschema:"maximum messages returned, default 200"`
	IncludeFiles      bool              `json:"include_files,omitempty" jsonschema:"include file and attachment metadata"`
	IncludePermalinks bool              `json:"include_permalinks,omitempty" jsonschema:"include a permalink for each message"`
	Format            string            `json:"format,omitempty" jsonschema:"output format: markdown (default) or json"`
}

// ChannelConversationsInput defines the input schema for get_channel_conversations.
type ChannelConversationsInput struct {
	Channel           string `json:"channel" jsonschema:"channel id or name"`
	Since             string `json:"since,omitempty" jsonschema:"inclusive start: YYYY-MM-DD, RFC 3339, a message ts, or a relative duration like 7D or 12H"`
	Until             string `json:"until,omitempty" jsonschema:"exclusive end, same formats as since"`
	Limit             int    `json:"limit,omitempty" jsonschema:"maximum messages returned, default 200"`
	Window            int    `json:"window,omitempty" jsonschema:"when above 0, expand each message with this much surrounding context"`
	IncludeFiles      bool   `json:"include_files,omitempty" jsonschema:"include file and attachment metadata"`
	IncludePermalinks bool   `json:"include_permalinks,omitempty" jsonschema:"include a permalink for each message"`
	Format            string `json:"format,omitempty" jsonschema:"output format: markdown (default) or json"`
}

// UserConversationsInput defines the input schema for get_user_conversations.
type UserConversationsInput struct {
	User              string `json:"user" jsonschema:"user id, @handle, real name or display name"`
	Channel           string `json:"channel,omitempty" jsonschema:"restrict to one channel id or name"`
	IncludeBots       bool   `json:"include_bots,omitempty" jsonschema:"allow the user reference to match bot users"`
	Since             string `json:"since,omitempty" jsonschema:"inclusive start: YYYY-MM-DD, RFC 3339, a message ts, or a relative duration like 7D"`
	Until             string `json:"until,omitempty" jsonschema:"exclusive end, same formats as since"`
	Limit             int    `json:"limit,omitempty" jsonschema:"maximum messages returned, default 200"`
	Window            int    `json:"window,omitempty" jsonschema:"when above 0, expand each message with this much surrounding context"`
	IncludeFiles      bool   `json:"include_files,omitempty" jsonschema:"include file and attachment metadata"`
	IncludePermalinks bool   `json:"include_permalinks,omitempty" jsonschema:"include a permalink for each message"`
	Format            string `json:"format,omitempty" jsonschema:"output format: markdown (default) or json"`
}

// ThreadInput defines the input schema for get_thread.
type ThreadInput struct {
	Channel           string `json:"channel" jsonschema:"channel id or name"`
	ThreadTS          string `json:"thread_ts" jsonschema:"timestamp of the thread root or of any reply in it"`
	IncludeFiles      bool   `json:"include_files,omitempty" jsonschema:"include file and attachment metadata"`
	IncludePermalinks bool   `json:"include_permalinks,omitempty" jsonschema:"include a permalink for each message"`
	Format            string `json:"format,omitempty" jsonschema:"output format: markdown (default) or json"`
}

// SearchInput defines the input schema for search_messages.
type SearchInput struct {
	Query             string   `json:"query" jsonschema:"the search query"`
	Users             []string `json:"users,omitempty" jsonschema:"only messages by these users (ids or names)"`
	Channels          []string `json:"channels,omitempty" jsonschema:"only messages in these channels (ids or names)"`
	Since             string   `json:"since,omitempty" jsonschema:"inclusive start: YYYY-MM-DD, RFC 3339, a message ts, or a relative duration like 7D"`
	Until             string   `json:"until,omitempty" jsonschema:"exclusive end, same formats as since"`
	SemanticWeight    *float64 `json:"semantic_weight,omitempty" jsonschema:"0 keyword only, 1 semantic only, default 0.5"`
	Limit             int      `json:"limit,omitempty" jsonschema:"maximum results, default 10, at most 100"`
	Tree              bool     `json:"tree,omitempty" jsonschema:"group results into channel threads instead of a ranked list"`
	IncludeFiles      bool     `json:"include_files,omitempty" jsonschema:"include file and attachment metadata"`
	IncludePermalinks bool     `json:"include_permalinks,omitempty" jsonschema:"include a permalink for each message"`
	Format            string   `json:"format,omitempty" jsonschema:"output format: markdown (default) or json"`
}

// ListChannelsInput defines the input schema for list_channels.
type ListChannelsInput struct {
	Format string `json:"format,omitempty" jsonschema:"output format: markdown (default) or json"`
}

// LookupChannelInput defines the input schema for lookup_channel.
type LookupChannelInput struct {
	Channel string `json:"channel" jsonschema:"channel id or name"`
	Format  string `json:"format,omitempty" jsonschema:"output format: markdown (default) or json"`
}

// LookupUserInput defines the input schema for lookup_user.
type LookupUserInput struct {
	User        string `json:"user" jsonschema:"user id, @handle, real name or display name"`
	IncludeBots bool   `json:"include_bots,omitempty" jsonschema:"allow matching bot users"`
	Format      string `json:"format,omitempty" jsonschema:"output format: markdown (default) or json"`
}

func (in MessageContextInput) request() query.MessageContextRequest {
	refs := make([]query.MessageRef, len(in.Messages))
	for i, m := range in.Messages {
		refs[i] = query.MessageRef{Channel: m.Channel, TS: m.TS}
	}
	return query.MessageContextRequest{
		Messages:    refs,
		Window:      in.Window,
		Limit:       in.Limit,
		OutputFlags: flags(in.IncludeFiles, in.IncludePermalinks),
	}
}

func (in ChannelConversationsInput) request() query.ChannelConversationsRequest {
	return query.ChannelConversationsRequest{
		Channel:     in.Channel,
		TimeRange:   query.TimeRange{Since: in.Since, Until: in.Until},
		Limit:       in.Limit,
		Window:      in.Window,
		OutputFlags: flags(in.IncludeFiles, in.IncludePermalinks),
	}
}

func (in UserConversationsInput) request() query.UserConversationsRequest {
	return query.UserConversationsRequest{
		User:        in.User,
		IncludeBots: in.IncludeBots,
		Channel:     in.Channel,
		TimeRange:   query.TimeRange{Since: in.Since, Until: in.Until},
		Limit:       in.Limit,
		Window:      in.Window,
		OutputFlags: flags(in.IncludeFiles, in.IncludePermalinks),
	}
}

func (in ThreadInput) request() query.ThreadRequest {
	return query.ThreadRequest{
		Channel:     in.Channel,
		ThreadTS:    in.ThreadTS,
		OutputFlags: flags(in.IncludeFiles, in.IncludePermalinks),
	}
}

func (in SearchInput) request() query.SearchRequest {
	return query.SearchRequest{
		Query:          in.Query,
		Users:          in.Users,
		Channels:       in.Channels,
		TimeRange:      query.TimeRange{Since: in.Since, Until: in.Until},
		SemanticWeight: in.SemanticWeight,
		Limit:          in.Limit,
		Tree:           in.Tree,
		OutputFlags:    flags(in.IncludeFiles, in.IncludePermalinks),
	}
}

func flags(files, permalinks bool) query.OutputFlags {
	return query.OutputFlags{IncludeFiles: files, IncludePermalinks: permalinks}
}
