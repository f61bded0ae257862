package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codemend/internal/config"
	"codemend/internal/resolve"
	"codemend/internal/target"
)

var (
	fixDryRun   bool
	fixShowDiff bool
	fixSource   string
)

// fixCmd resolves the issues of every configured source
var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Fix reported issues",
	Long: `Lists issues from each configured source and tries to fix them one by one.

For every issue, proposal windows of increasing size are sent to the backend
chain in priority order. An answer is merged into the source, applied, and
verified (validity test, or the issue count going down). Verified fixes are
committed to the target; everything else is reverted.

Examples:
  mend fix
  mend fix --source ruff --dry-run --show-diff`,
	RunE: runFixCmd,
}

func init() {
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Find and verify fixes without keeping them")
	fixCmd.Flags().BoolVar(&fixShowDiff, "show-diff", false, "Print the diff of every fix")
	fixCmd.Flags().StringVar(&fixSource, "source", "", "Only use the named source")
}

type fixOptions struct {
	source string
	dryRun bool
}

func runFixCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports, err := runFix(ctx, newApp(cfg, logger), fixOptions{
		source: fixSource,
		dryRun: fixDryRun || cfg.Resolve.DryRun,
	})
	for _, r := range reports {
		fmt.Fprintln(cmd.OutOrStdout(), renderReport(r, fixShowDiff))
	}
	return err
}

// runFix runs one resolution pass per source. The chain is closed, and its
// learned answers flushed, on every path.
func runFix(ctx context.Context, a *app, opts fixOptions) (reports []*resolve.Report, err error) {
	if err := configured(a.cfg); err != nil {
		return nil, err
	}
	sources, err := a.sources(opts.source)
	if err != nil {
		return nil, err
	}

	chain, err := a.chain(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := chain.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	runID := uuid.NewString()
	tgt, err := a.target(runID, opts.dryRun)
	if err != nil {
		return nil, err
	}

	solver := resolve.NewSolver(chain, resolve.NewVerifier(a.executor, a.logger), resolve.Options{
		Variants:     a.variants(),
		MaxHops:      a.cfg.Resolve.MaxHops,
		ContextLines: a.cfg.Resolve.ContextLines,
		RunID:        runID,
	}, a.logger)

	a.logger.Info("Starting run",
		zap.String("run", runID),
		zap.Int("sources", len(sources)),
		zap.Strings("chain", chain.Names()),
		zap.String("target", tgt.Name()))

	for _, src := range sources {
		report, err := solver.SolveIssues(ctx, src, tgt)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, fmt.Errorf("%s: %w", src.Name(), err)
		}
	}
	if note := targetNote(tgt, a.cfg.Target); note != "" {
		a.logger.Info(note, zap.String("run", runID))
	}
	return reports, nil
}

// targetNote describes what a target did outside the working tree.
func targetNote(tgt target.Target, tc config.TargetConfig) string {
	gs, ok := tgt.(*target.GitHubSuggestion)
	if !ok {
		return ""
	}
	return fmt.Sprintf("Posted %d review suggestions to %s/%s#%d", gs.Posted(), tc.GitHub.Owner, tc.GitHub.Repo, tc.GitHub.PullNumber)
}

// configured reports whether the loaded configuration can fix anything.
func configured(c *config.Config) error {
	if len(c.Sources) == 0 {
		return errors.New("no sources configured")
	}
	if len(c.Backends) == 0 {
		return errors.New("no backends configured")
	}
	return nil
}
