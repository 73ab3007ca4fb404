// Package cli implements the specgate command line: the MCP server entry
// point plus read-only reports over the same store.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/engine"
	"github.com/HendryAvila/specgate/internal/server"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	dataDir    string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:     "specgate",
		Version: server.Version,
		Short:   "A quality gate for project specifications",
		Long: `specgate keeps a project's specifications as atomic facts, scores how
complete they are for the current phase, and refuses risky operations
while the specification is too thin or contradicts itself.

Run "specgate serve" from an MCP host to expose it as tools.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default $SPECGATE_CONFIG or <data-dir>/specgate.yaml)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Data directory (default $SPECGATE_DATA_DIR or ~/.specgate)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(opts),
		newVersionCmd(),
		newProjectsCmd(opts),
		newStatusCmd(opts),
		newGapsCmd(opts),
		newDecisionsCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	return cfg, nil
}

// logger writes to w, never stdout: stdout is the MCP transport.
func (o *options) logger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(o.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *options) open(cmd *cobra.Command) (*engine.Engine, func() error, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	e, closeAll, err := engine.Open(cfg, o.logger(cmd.ErrOrStderr()))
	if err != nil {
		return nil, nil, fmt.Errorf("opening engine: %w", err)
	}
	return e, closeAll, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "specgate v%s\n", server.Version)
		},
	}
}
