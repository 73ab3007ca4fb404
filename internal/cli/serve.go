package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	sgserver "github.com/HendryAvila/specgate/internal/server"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Long: `Start the MCP server on stdin/stdout. Add it to an MCP host as:

  {
    "mcpServers": {
      "specgate": {
        "command": "specgate",
        "args": ["serve"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeAll, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer closeAll()

			opts.logger(cmd.ErrOrStderr()).Info("specgate serving on stdio",
				"version", sgserver.Version, "data_dir", e.Config().DataDir)
			return server.ServeStdio(sgserver.New(e))
		},
	}
}
