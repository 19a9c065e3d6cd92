package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "github.com/Aman-CERP/slackmcp/internal/mcp"
	"github.com/Aman-CERP/slackmcp/internal/query"
)

func newContextCmd(g *globals) *cobra.Command {
	var (
		window int
		limit  int
		out    outputOptions
	)

	cmd := &cobra.Command{
		Use:   "context <channel> <ts> [<channel> <ts>...]",
		Short: "Show messages with their surrounding context",
		Long: `Show one or more messages with their thread and channel context.

Each message is given as a channel (id or name) followed by its ts. The
window is the number of neighbors taken on each side: thread replies for
a reply, channel neighbors and their threads for a root message.`,
		Example: `  slackmcp context general 1717430400.123456
  slackmcp context C024BE91L 1717430400.123456 --window 10 --permalinks`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected <channel> <ts> pairs, got %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req := query.MessageContextRequest{
				Limit:       limit,
				OutputFlags: out.flags(),
			}
			for i := 0; i < len(args); i += 2 {
				req.Messages = append(req.Messages, query.MessageRef{Channel: args[i], TS: args[i+1]})
			}
			if cmd.Flags().Changed("window") {
				w := window
				req.Window = &w
			}

			return g.withService(cmd.Context(), func(svc mcpserver.Service) error {
				resp, err := svc.MessageContext(cmd.Context(), req)
				if err != nil {
					return err
				}
				return out.print(cmd, resp, func() string {
					return mcpserver.FormatConversations("message context", resp)
				})
			})
		},
	}

	cmd.Flags().IntVar(&window, "window", 5, "Messages on each side of every requested message")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum total messages (default from config)")
	out.register(cmd, true)

	return cmd
}

func newThreadCmd(g *globals) *cobra.Command {
	var out outputOptions

	cmd := &cobra.Command{
		Use:   "thread <channel> <thread_ts>",
		Short: "Show a whole thread",
		Long: `Show a thread in chronological order, root first.

thread_ts is the ts of the thread's root message, or of any reply in it.`,
		Example: `  slackmcp thread general 1717430400.123456`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := query.ThreadRequest{
				Channel:     args[0],
				ThreadTS:    args[1],
				OutputFlags: out.flags(),
			}

			return g.withService(cmd.Context(), func(svc mcpserver.Service) error {
				resp, err := svc.ThreadMessages(cmd.Context(), req)
				if err != nil {
					return err
				}
				return out.print(cmd, resp, func() string {
					return mcpserver.FormatThread(resp)
				})
			})
		},
	}

	out.register(cmd, true)

	return cmd
}
