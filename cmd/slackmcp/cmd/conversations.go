package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/slackmcp/internal/conversation"
	mcpserver "github.com/Aman-CERP/slackmcp/internal/mcp"
	"github.com/Aman-CERP/slackmcp/internal/query"
)

func newConversationsCmd(g *globals) *cobra.Command {
	var (
		channel     string
		user        string
		includeBots bool
		since       string
		until       string
		limit       int
		window      int
		out         outputOptions
	)

	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List recent conversations in a channel or with a user",
		Long: `List recent conversations, newest first, as channel and thread trees.

With --channel, lists the channel's recent thread roots. With --user, lists
the user's recent messages across channels, or in one channel when
--channel is also given. --window expands every message with its context.`,
		Example: `  slackmcp conversations --channel general --since 7D
  slackmcp conversations --user @alice --channel ops --limit 20
  slackmcp conversations --user deploy-bot --include-bots`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if channel == "" && user == "" {
				return errors.New("one of --channel or --user is required")
			}
			tr := query.TimeRange{Since: since, Until: until}

			return g.withService(cmd.Context(), func(svc mcpserver.Service) error {
				var (
					resp  *conversation.Response
					title string
					err   error
				)
				if user != "" {
					title = "conversations with " + user
					resp, err = svc.UserConversations(cmd.Context(), query.UserConversationsRequest{
						User:        user,
						IncludeBots: includeBots,
						Channel:     channel,
						TimeRange:   tr,
						Limit:       limit,
						Window:      window,
						OutputFlags: out.flags(),
					})
				} else {
					title = "conversations in " + channel
					resp, err = svc.ChannelConversations(cmd.Context(), query.ChannelConversationsRequest{
						Channel:     channel,
						TimeRange:   tr,
						Limit:       limit,
						Window:      window,
						OutputFlags: out.flags(),
					})
				}
				if err != nil {
					return err
				}
				return out.print(cmd, resp, func() string {
					return mcpserver.FormatConversations(title, resp)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&channel, "channel", "c", "", "Channel id or name")
	cmd.Flags().StringVarP(&user, "user", "u", "", "User id, name or email")
	cmd.Flags().BoolVar(&includeBots, "include-bots", false, "Let --user match bot users")
	cmd.Flags().StringVar(&since, "since", "", "Start, inclusive: YYYY-MM-DD, RFC 3339, a ts, or relative like 7D")
	cmd.Flags().StringVar(&until, "until", "", "End, exclusive; same forms as --since")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of messages (default from config)")
	cmd.Flags().IntVar(&window, "window", 0, "Expand each message with this many neighbors per side")
	out.register(cmd, true)

	return cmd
}
