package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/slackmcp/internal/output"
	"github.com/Aman-CERP/slackmcp/internal/query"
)

// outputOptions are the output flags shared by the query commands.
type outputOptions struct {
	json       bool
	files      bool
	permalinks bool
}

func (o *outputOptions) register(cmd *cobra.Command, withMessageFields bool) {
	cmd.Flags().BoolVar(&o.json, "json", false, "Output as JSON")
	if withMessageFields {
		cmd.Flags().BoolVar(&o.files, "files", false, "Include file metadata and attachments")
		cmd.Flags().BoolVar(&o.permalinks, "permalinks", false, "Include message permalinks (needs slack.workspace_url)")
	}
}

func (o outputOptions) flags() query.OutputFlags {
	return query.OutputFlags{IncludeFiles: o.files, IncludePermalinks: o.permalinks}
}

// print writes value as JSON, or the markdown the MCP tools return.
func (o outputOptions) print(cmd *cobra.Command, value any, markdown func() string) error {
	out := output.New(cmd.OutOrStdout())
	if o.json {
		return out.JSON(value)
	}
	out.Markdown(markdown())
	return nil
}
