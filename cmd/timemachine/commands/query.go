package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timemachine/pkg/history"
	"github.com/Sumatoshi-tech/timemachine/pkg/render"
)

func newBlameCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "blame <file>",
		Short: "Show which commit last changed each line of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runQuery(cmd, func(ctx context.Context, engine *history.Engine, printer *render.Printer) error {
				result, err := engine.Blame(ctx, args[0])
				if err != nil {
					return err
				}

				return printer.Blame(result)
			})
		},
	}
}

func newDiffCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <commit>",
		Short: "Show the changes a commit made against its first parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runQuery(cmd, func(ctx context.Context, engine *history.Engine, printer *render.Printer) error {
				result, err := engine.CommitDiff(ctx, args[0])
				if err != nil {
					return err
				}

				return printer.CommitDiff(result)
			})
		},
	}
}

func newSummarizeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <base> <head>",
		Short: "Summarize the changes between two commits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runQuery(cmd, func(ctx context.Context, engine *history.Engine, printer *render.Printer) error {
				result, err := engine.SummarizeDiff(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				return printer.Summary(result)
			})
		},
	}
}

func newCommitsCommand(flags *globalFlags) *cobra.Command {
	var (
		limit    int
		plotPath string
	)

	cmd := &cobra.Command{
		Use:   "commits <file>",
		Short: "List the non-merge commits that touched a file, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runQuery(cmd, func(ctx context.Context, engine *history.Engine, printer *render.Printer) error {
				if !cmd.Flags().Changed("limit") {
					limit = history.UseDefaultLimit
				}

				result, err := engine.CommitsAffecting(ctx, args[0], limit)
				if err != nil {
					return err
				}

				if plotPath != "" {
					err = writePlot(plotPath, result)
					if err != nil {
						return err
					}
				}

				return printer.Commits(result)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of commits (default history.default_limit)")
	cmd.Flags().StringVar(&plotPath, "plot", "", "also write an HTML commit activity chart to this path")

	return cmd
}

func newShowCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <commit> <file>",
		Short: "Print a file as it existed at a commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runQuery(cmd, func(ctx context.Context, engine *history.Engine, printer *render.Printer) error {
				result, err := engine.FileAtCommit(ctx, args[1], args[0])
				if err != nil {
					return err
				}

				return printer.File(result)
			})
		},
	}
}

func writePlot(path string, result *history.CommitsAffectingResult) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}

	err = render.ActivityChart(out, result)
	if err != nil {
		_ = out.Close()

		return err
	}

	err = out.Close()
	if err != nil {
		return fmt.Errorf("close plot file: %w", err)
	}

	return nil
}
