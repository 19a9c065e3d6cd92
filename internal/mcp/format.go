package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Aman-CERP/slackmcp/internal/conversation"
	"github.com/Aman-CERP/slackmcp/internal/query"
)

// FormatConversations renders a tree response as markdown, one section per
// channel with replies nested under their root.
func FormatConversations(title string, resp *conversation.Response) string {
	if resp == nil || len(resp.Channels) == 0 {
		return fmt.Sprintf("No messages found for %s", title)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", title)

	total := 0
	for _, ch := range resp.Channels {
		total += countMessages(ch.Messages)
	}
	fmt.Fprintf(&sb, "Found %s in %s\n\n", plural(total, "message"), plural(len(resp.Channels), "channel"))

	writeChannels(&sb, resp.Channels, resp.Users)
	return sb.String()
}

// FormatThread renders a thread as a chronological list.
func FormatThread(resp *query.ThreadResponse) string {
	if resp == nil || len(resp.Messages) == 0 {
		return "Thread is empty"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Thread %s in %s\n\n", resp.Messages[0].TS, resp.ChannelID)
	fmt.Fprintf(&sb, "%s\n\n", plural(len(resp.Messages), "message"))
	for _, m := range resp.Messages {
		m.ReplyCount = nil // every reply follows in the list
		writeMessage(&sb, m, resp.Users, "")
	}
	return sb.String()
}

// FormatSearchResults renders search results, either as a ranked list or
// as channel threads when the response holds a tree.
func FormatSearchResults(q string, resp *query.SearchResponse) string {
	if resp == nil || (len(resp.Messages) == 0 && len(resp.Channels) == 0) {
		return fmt.Sprintf("No results found for \"%s\"", q)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", q)

	if len(resp.Channels) > 0 {
		total := 0
		for _, ch := range resp.Channels {
			total += countMessages(ch.Messages)
		}
		fmt.Fprintf(&sb, "Found %s in %s\n\n", plural(total, "message"), plural(len(resp.Channels), "channel"))
		writeChannels(&sb, resp.Channels, resp.Users)
		return sb.String()
	}

	fmt.Fprintf(&sb, "Found %s\n\n", plural(len(resp.Messages), "result"))
	for i, m := range resp.Messages {
		fmt.Fprintf(&sb, "### %d. %s in %s `%s`", i+1, userLabel(m.UserID, resp.Users), m.ChannelID, m.TS)
		if m.Score != nil {
			fmt.Fprintf(&sb, " (score: %.4f)", *m.Score)
		}
		sb.WriteString("\n\n")
		if m.ThreadTS != "" && m.ThreadTS != m.TS {
			fmt.Fprintf(&sb, "Reply in thread `%s`\n\n", m.ThreadTS)
		}
		fmt.Fprintf(&sb, "> %s\n\n", strings.ReplaceAll(m.Text, "\n", "\n> "))
		if m.Permalink != "" {
			fmt.Fprintf(&sb, "%s\n\n", m.Permalink)
		}
	}
	return sb.String()
}

// FormatChannels renders the channel directory as a table.
func FormatChannels(channels []query.ChannelInfo) string {
	if len(channels) == 0 {
		return "No channels found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Channels\n\n%s\n\n", plural(len(channels), "channel"))
	sb.WriteString("| ID | Name | Topic |\n")
	sb.WriteString("|----|------|-------|\n")
	for _, c := range channels {
		fmt.Fprintf(&sb, "| %s | #%s | %s |\n", c.ID, c.Name, cell(c.Topic))
	}
	return sb.String()
}

// FormatChannel renders one channel directory entry.
func FormatChannel(c *query.ChannelInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## #%s\n\n", c.Name)
	fmt.Fprintf(&sb, "- **ID:** %s\n", c.ID)
	if c.Topic != "" {
		fmt.Fprintf(&sb, "- **Topic:** %s\n", c.Topic)
	}
	if c.Purpose != "" {
		fmt.Fprintf(&sb, "- **Purpose:** %s\n", c.Purpose)
	}
	return sb.String()
}

// FormatUser renders one user directory entry.
func FormatUser(u *query.UserInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## @%s\n\n", u.UserName)
	fmt.Fprintf(&sb, "- **ID:** %s\n", u.ID)
	if u.RealName != "" {
		fmt.Fprintf(&sb, "- **Real name:** %s\n", u.RealName)
	}
	if u.DisplayName != "" {
		fmt.Fprintf(&sb, "- **Display name:** %s\n", u.DisplayName)
	}
	if u.Email != "" {
		fmt.Fprintf(&sb, "- **Email:** %s\n", u.Email)
	}
	if u.TZ != "" {
		fmt.Fprintf(&sb, "- **Time zone:** %s\n", u.TZ)
	}
	if u.IsBot {
		sb.WriteString("- **Bot:** yes\n")
	}
	return sb.String()
}

func writeChannels(sb *strings.Builder, channels map[string]conversation.ChannelOut, users map[string]conversation.UserOut) {
	ids := make([]string, 0, len(channels))
	for id := range channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ch := channels[id]
		if ch.Name != "" {
			fmt.Fprintf(sb, "### #%s (%s)\n\n", ch.Name, id)
		} else {
			fmt.Fprintf(sb, "### %s\n\n", id)
		}
		for _, m := range ch.Messages {
			writeMessage(sb, m, users, "")
			for _, r := range m.Replies {
				writeMessage(sb, r, users, "  ")
			}
		}
		sb.WriteString("\n")
	}
}

func writeMessage(sb *strings.Builder, m conversation.MessageOut, users map[string]conversation.UserOut, indent string) {
	if m.Placeholder {
		fmt.Fprintf(sb, "%s- `%s` _%s_\n", indent, m.TS, m.Text)
	} else {
		text := strings.ReplaceAll(m.Text, "\n", "\n"+indent+"  ")
		fmt.Fprintf(sb, "%s- **%s** `%s`: %s\n", indent, userLabel(m.UserID, users), m.TS, text)
	}
	if m.ReplyCount != nil && *m.ReplyCount > 0 && len(m.Replies) < *m.ReplyCount {
		fmt.Fprintf(sb, "%s  _%s, %d shown_\n", indent, plural(*m.ReplyCount, "reply"), len(m.Replies))
	}
	if len(m.Files) > 0 {
		fmt.Fprintf(sb, "%s  files: `%s`\n", indent, string(m.Files))
	}
	if m.Permalink != "" {
		fmt.Fprintf(sb, "%s  %s\n", indent, m.Permalink)
	}
}

func countMessages(msgs []conversation.MessageOut) int {
	n := 0
	for _, m := range msgs {
		if !m.Placeholder {
			n++
		}
		n += len(m.Replies)
	}
	return n
}

// userLabel prefers the handle and falls back to the raw id.
func userLabel(id string, users map[string]conversation.UserOut) string {
	if id == "" {
		return "unknown"
	}
	if u, ok := users[id]; ok && u.UserName != "" {
		return "@" + u.UserName
	}
	return id
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	if strings.HasSuffix(noun, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
