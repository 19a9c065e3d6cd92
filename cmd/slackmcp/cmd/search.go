package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	mcpserver "github.com/Aman-CERP/slackmcp/internal/mcp"
	"github.com/Aman-CERP/slackmcp/internal/query"
)

type searchOptions struct {
	users          []string
	channels       []string
	since          string
	until          string
	semanticWeight float64
	limit          int
	tree           bool
	out            outputOptions
}

func newSearchCmd(g *globals) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search messages",
		Long: `Search the archive with hybrid search.

Combines full-text (keyword) and embedding (semantic) rankings with
Reciprocal Rank Fusion. --semantic-weight 0 runs keyword search only and
needs no embedding provider; 1 runs semantic search only.

Users and channels accept ids, names or #channel / @user forms.`,
		Example: `  slackmcp search "deploy rollback"
  slackmcp search "on-call handoff" --channel ops --since 30D
  slackmcp search "quarterly plan" --user alice --semantic-weight 0
  slackmcp search "incident" --tree --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := query.SearchRequest{
				Query:       strings.Join(args, " "),
				Users:       opts.users,
				Channels:    opts.channels,
				TimeRange:   query.TimeRange{Since: opts.since, Until: opts.until},
				Limit:       opts.limit,
				Tree:        opts.tree,
				OutputFlags: opts.out.flags(),
			}
			if cmd.Flags().Changed("semantic-weight") {
				w := opts.semanticWeight
				req.SemanticWeight = &w
			}

			return g.withService(cmd.Context(), func(svc mcpserver.Service) error {
				resp, err := svc.Search(cmd.Context(), req)
				if err != nil {
					return err
				}
				return opts.out.print(cmd, resp, func() string {
					return mcpserver.FormatSearchResults(req.Query, resp)
				})
			})
		},
	}

	cmd.Flags().StringSliceVarP(&opts.users, "user", "u", nil, "Only messages by these users (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.channels, "channel", "c", nil, "Only messages in these channels (repeatable)")
	cmd.Flags().StringVar(&opts.since, "since", "", "Start, inclusive: YYYY-MM-DD, RFC 3339, a ts, or relative like 7D")
	cmd.Flags().StringVar(&opts.until, "until", "", "End, exclusive; same forms as --since")
	cmd.Flags().Float64VarP(&opts.semanticWeight, "semantic-weight", "w", 0.5, "Semantic share from 0 (keyword only) to 1 (semantic only)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&opts.tree, "tree", false, "Group results into channel and thread trees")
	opts.out.register(cmd, true)

	return cmd
}
