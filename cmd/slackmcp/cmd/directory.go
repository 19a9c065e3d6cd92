package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/Aman-CERP/slackmcp/internal/mcp"
)

func newChannelsCmd(g *globals) *cobra.Command {
	var out outputOptions

	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List archived channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withService(cmd.Context(), func(svc mcpserver.Service) error {
				channels, err := svc.ListChannels(cmd.Context())
				if err != nil {
					return err
				}
				return out.print(cmd, channels, func() string {
					return mcpserver.FormatChannels(channels)
				})
			})
		},
	}

	out.register(cmd, false)

	return cmd
}

func newResolveCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a channel or user reference",
		Long: `Resolve a channel or user reference the way every other command does.

Exact ids win, then exact names. A name shared by several entries is
reported as ambiguous with the candidates listed.`,
		Example: `  slackmcp resolve channel #general
  slackmcp resolve user alice@acme.com
  slackmcp resolve user deploy-bot --include-bots`,
	}

	cmd.AddCommand(newResolveChannelCmd(g))
	cmd.AddCommand(newResolveUserCmd(g))

	return cmd
}

func newResolveChannelCmd(g *globals) *cobra.Command {
	var out outputOptions

	cmd := &cobra.Command{
		Use:   "channel <ref>",
		Short: "Resolve a channel by id or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withService(cmd.Context(), func(svc mcpserver.Service) error {
				ch, err := svc.ResolveChannel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return out.print(cmd, ch, func() string {
					return mcpserver.FormatChannel(ch)
				})
			})
		},
	}

	out.register(cmd, false)

	return cmd
}

func newResolveUserCmd(g *globals) *cobra.Command {
	var (
		includeBots bool
		out         outputOptions
	)

	cmd := &cobra.Command{
		Use:   "user <ref>",
		Short: "Resolve a user by id, name, display name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withService(cmd.Context(), func(svc mcpserver.Service) error {
				u, err := svc.LookupUser(cmd.Context(), args[0], includeBots)
				if err != nil {
					return err
				}
				return out.print(cmd, u, func() string {
					return mcpserver.FormatUser(u)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&includeBots, "include-bots", false, "Also match bot users")
	out.register(cmd, false)

	return cmd
}
