package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"codemend/internal/backend"
	"codemend/internal/backend/cache"
	"codemend/internal/backend/command"
	"codemend/internal/backend/llm"
	"codemend/internal/config"
	"codemend/internal/issue"
	"codemend/internal/logging"
	"codemend/internal/source"
	"codemend/internal/tactile"
	"codemend/internal/target"
	"codemend/internal/world"
)

// app turns configuration into collaborators.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	executor *tactile.DirectExecutor
}

func newApp(cfg *config.Config, logger *zap.Logger) *app {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &app{
		cfg:    cfg,
		logger: logger,
		executor: tactile.NewDirectExecutor(tactile.ExecutorConfig{
			WorkingDirectory:   cfg.Workspace,
			MaxOutputBytes:     cfg.Execution.MaxOutputBytes,
			AllowedEnvironment: cfg.Execution.AllowedEnvVars,
		}, logger),
	}
}

// path resolves p against the workspace.
func (a *app) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.cfg.Workspace, p)
}

// sources builds the configured sources, or only the one named.
func (a *app) sources(only string) ([]source.Source, error) {
	var out []source.Source
	for _, sc := range a.cfg.Sources {
		if only != "" && sc.Name != only {
			continue
		}
		dir := a.cfg.Workspace
		if sc.WorkingDir != "" {
			dir = a.path(sc.WorkingDir)
		}
		srcCfg := source.Config{
			Name: sc.Name,
			Command: tactile.Command{
				Binary:           sc.Command,
				Arguments:        sc.Args,
				WorkingDirectory: dir,
				Timeout:          a.cfg.GetSourceTimeout(sc),
			},
			Format:    source.Format(sc.Format),
			IssueType: sc.IssueType,
		}
		if vt := sc.ValidityTest; vt != nil {
			srcCfg.Validity = &tactile.Command{
				Binary:           vt.Command,
				Arguments:        vt.Args,
				WorkingDirectory: a.cfg.Workspace,
				Timeout:          config.Duration(vt.Timeout, a.cfg.GetExecutionTimeout()),
			}
		}
		src, err := source.NewCommand(srcCfg, a.executor, a.logger)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	if only != "" && len(out) == 0 {
		return nil, fmt.Errorf("no source named %q", only)
	}
	return out, nil
}

// chain builds the backend chain in configuration order. Nodes built before
// a failure are closed.
func (a *app) chain(ctx context.Context) (*backend.Chain, error) {
	var nodes []backend.Backend
	for _, bc := range a.cfg.Backends {
		node, err := a.backend(ctx, bc)
		if err != nil {
			for _, n := range nodes {
				_ = n.Close()
			}
			return nil, fmt.Errorf("backend %s: %w", bc.Name, err)
		}
		nodes = append(nodes, node)
	}
	return backend.NewChain(a.logger, nodes...), nil
}

func (a *app) backend(ctx context.Context, bc config.BackendConfig) (backend.Backend, error) {
	opts := llm.Options{
		Name:              bc.Name,
		Model:             bc.Model,
		APIKey:            bc.APIKey,
		BaseURL:           bc.BaseURL,
		Candidates:        bc.Candidates,
		Temperature:       bc.Temperature,
		Timeout:           a.cfg.GetBackendTimeout(bc),
		RequestsPerMinute: bc.RequestsPerMinute,
	}

	switch bc.Kind {
	case "cache":
		store, err := a.openStore(bc)
		if err != nil {
			return nil, err
		}
		return cache.New(bc.Name, store, a.logger), nil
	case "openai":
		if bc.APIKey == "" && bc.BaseURL == "" {
			logging.For(a.logger, logging.CategoryBoot).Warn("OpenAI backend has no API key (set OPENAI_API_KEY)",
				zap.String("backend", bc.Name))
		}
		return llm.NewOpenAI(opts, a.logger), nil
	case "gemini":
		if bc.APIKey == "" {
			return nil, errors.New("no API key (set GEMINI_API_KEY)")
		}
		return llm.NewGemini(ctx, opts, a.logger)
	case "command":
		return command.New(bc.Name, tactile.Command{
			Binary:           bc.Command,
			Arguments:        bc.Args,
			WorkingDirectory: a.cfg.Workspace,
			Timeout:          a.cfg.GetBackendTimeout(bc),
		}, a.executor, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", bc.Kind)
	}
}

func (a *app) openStore(bc config.BackendConfig) (cache.Store, error) {
	path := a.path(bc.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return cache.Open(path, bc.Format)
}

// target builds the configured diff target, wrapped for dry runs.
func (a *app) target(runID string, dryRun bool) (target.Target, error) {
	var tgt target.Target
	switch tc := a.cfg.Target; tc.Kind {
	case "", "file":
		tgt = target.NewFileTarget(a.logger)
	case "git":
		gt, err := target.NewGitTarget(target.GitOptions{
			Dir:     a.cfg.Workspace,
			Message: tc.CommitMessage,
			RunID:   runID,
		}, a.executor, a.logger)
		if err != nil {
			return nil, fmt.Errorf("commit message template: %w", err)
		}
		tgt = gt
	case "github":
		tgt = target.NewGitHubSuggestion(target.GitHubOptions{
			Owner:    tc.GitHub.Owner,
			Repo:     tc.GitHub.Repo,
			Number:   tc.GitHub.PullNumber,
			CommitID: tc.GitHub.CommitSHA,
			Root:     a.cfg.Workspace,
		}, target.NewGitHubClient(tc.GitHub.Token), a.logger)
	default:
		return nil, fmt.Errorf("unknown target kind %q", tc.Kind)
	}
	if dryRun {
		tgt = target.NewDryRun(tgt, a.logger)
	}
	return tgt, nil
}

// variants maps configured variants, defaulting to issue.DefaultVariants.
func (a *app) variants() []issue.Variant {
	finder := world.NewBlockFinder(a.logger)
	if len(a.cfg.Resolve.Variants) == 0 {
		return issue.DefaultVariants(finder)
	}
	out := make([]issue.Variant, 0, len(a.cfg.Resolve.Variants))
	for _, v := range a.cfg.Resolve.Variants {
		switch {
		case v.Radius != nil:
			out = append(out, issue.RadiusVariant{Radius: *v.Radius})
		case v.Block:
			out = append(out, issue.BlockVariant{Finder: finder})
		default:
			out = append(out, issue.RangeVariant{Start: v.Start, End: v.End})
		}
	}
	return out
}
