package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timemachine/pkg/mcp"
	"github.com/Sumatoshi-tech/timemachine/pkg/observability"
)

func newMCPCommand(flags *globalFlags) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the history tools that AI agents can discover and invoke:
  - get_git_blame: Attribute each line of a file to its last commit
  - get_commit_diff: Changes a commit made against its first parent
  - summarize_diff: Changes between two commits with totals
  - get_commits_affecting: Non-merge commits touching a file
  - get_file_at_commit: A file's content at a commit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extra := make(map[string]any)
			if debug {
				extra["logging.level"] = "debug"
			}

			cfg, err := flags.load(extra)
			if err != nil {
				return err
			}

			providers, err := initObservability(cfg, observability.ModeMCP)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			engine, err := newEngine(cfg, providers)
			if err != nil {
				return err
			}

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(engine, mcp.ServerDeps{Logger: providers.Logger, Metrics: red, Tracer: providers.Tracer})

			providers.Logger.Debug("mcp server starting", slog.String("repository", cfg.Repository.Path))

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
