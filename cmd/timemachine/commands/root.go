// Package commands implements the timemachine CLI commands.
package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timemachine/pkg/config"
	"github.com/Sumatoshi-tech/timemachine/pkg/gitaccess"
	"github.com/Sumatoshi-tech/timemachine/pkg/history"
	"github.com/Sumatoshi-tech/timemachine/pkg/observability"
	"github.com/Sumatoshi-tech/timemachine/pkg/render"
	"github.com/Sumatoshi-tech/timemachine/pkg/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	repo       string
	backend    string
	format     string
	noColor    bool
}

// NewRootCommand builds the timemachine command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "timemachine",
		Short: "Git Time Machine - query a repository's history",
		Long: `Git Time Machine answers questions about a git repository's history:
who last changed each line, what a commit changed, how two commits differ,
which commits touched a file and what a file looked like at a commit.

The same queries are served over HTTP (serve) and MCP (mcp).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default .timemachine.yaml in . or $HOME)")
	pf.StringVarP(&flags.repo, "repo", "r", "", "repository path (default from config, then .)")
	pf.StringVar(&flags.backend, "backend", "", "repository backend: libgit2 or gogit")
	pf.StringVarP(&flags.format, "format", "f", string(render.FormatText), "output format: text, json or yaml")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newServeCommand(flags),
		newMCPCommand(flags),
		newBlameCommand(flags),
		newDiffCommand(flags),
		newSummarizeCommand(flags),
		newCommitsCommand(flags),
		newShowCommand(flags),
		newVersionCommand(),
	)

	return rootCmd
}

// load reads the configuration with command-line overrides applied.
func (g *globalFlags) load(extra map[string]any) (*config.Config, error) {
	overrides := make(map[string]any, len(extra)+2)

	if g.repo != "" {
		overrides["repository.path"] = g.repo
	}

	if g.backend != "" {
		overrides["repository.backend"] = g.backend
	}

	for key, value := range extra {
		overrides[key] = value
	}

	return config.LoadConfig(g.configPath, overrides)
}

// newEngine builds the query engine described by cfg.
func newEngine(cfg *config.Config, providers observability.Providers) (*history.Engine, error) {
	backend, err := gitaccess.ParseBackend(cfg.Repository.Backend)
	if err != nil {
		return nil, err
	}

	return history.NewEngine(gitaccess.NewOpener(cfg.Repository.Path, backend), history.Options{
		DefaultLimit:  cfg.History.DefaultLimit,
		MaxLimit:      cfg.History.MaxLimit,
		ContextLines:  cfg.Diff.ContextLines,
		ShowBinary:    cfg.Diff.ShowBinary,
		DetectRenames: cfg.Diff.DetectRenames,
		MaxConcurrent: cfg.Server.MaxConcurrent,
		Tracer:        providers.Tracer,
	}), nil
}

// initObservability maps the config onto observability settings for mode.
func initObservability(cfg *config.Config, mode observability.AppMode) (observability.Providers, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.Environment = cfg.Observability.Environment
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Observability.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.SampleRatio = cfg.Observability.SampleRatio
	obsCfg.Prometheus = mode == observability.ModeServe && cfg.Observability.Prometheus
	obsCfg.LogLevel = observability.ParseLogLevel(cfg.Logging.Level)
	obsCfg.LogJSON = cfg.Logging.Format == config.LogFormatJSON || mode == observability.ModeMCP

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}

// queryFunc runs one CLI query.
type queryFunc func(ctx context.Context, engine *history.Engine, printer *render.Printer) error

// runQuery wires config, telemetry, engine and printer for a one-shot query.
func (g *globalFlags) runQuery(cmd *cobra.Command, fn queryFunc) error {
	format, err := render.ParseFormat(g.format)
	if err != nil {
		return err
	}

	cfg, err := g.load(nil)
	if err != nil {
		return err
	}

	providers, err := initObservability(cfg, observability.ModeCLI)
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

	printer := render.NewPrinter(cmd.OutOrStdout(), render.Options{
		Format: format,
		Color:  !g.noColor && !color.NoColor,
	})

	return fn(cmd.Context(), engine, printer)
}
