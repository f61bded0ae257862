// Package source discovers issues by running analysis tools and parsing
// their output.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"codemend/internal/issue"
	"codemend/internal/logging"
	"codemend/internal/tactile"
)

// Source lists the issues currently present in a codebase. ListIssues is
// expected to be idempotent between mutations.
type Source interface {
	Name() string
	ListIssues(ctx context.Context) ([]*issue.Issue, error)
	// ValidityTest is an optional command whose zero exit status confirms a
	// tentative fix. Nil means fixes are verified by re-listing issues.
	ValidityTest() *tactile.Command
}

// Config describes a tool-backed source.
type Config struct {
	Name      string
	Command   tactile.Command
	Format    Format
	Root      string // relative file paths are resolved here; defaults to the command's working directory
	IssueType string // used when the tool reports no severity
	Validity  *tactile.Command
}

// Command is a Source that runs one tool.
type Command struct {
	cfg      Config
	parse    Parser
	executor tactile.Executor
	logger   *zap.Logger
}

// NewCommand creates a tool source. It fails on an unknown format or an
// empty command.
func NewCommand(cfg Config, executor tactile.Executor, logger *zap.Logger) (*Command, error) {
	parse, err := ParserFor(cfg.Format)
	if err != nil {
		return nil, err
	}
	if err := executor.Validate(cfg.Command); err != nil {
		return nil, fmt.Errorf("source %s: %w", cfg.Name, err)
	}
	if cfg.Root == "" {
		cfg.Root = cfg.Command.WorkingDirectory
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Command.Binary
	}
	return &Command{
		cfg:      cfg,
		parse:    parse,
		executor: executor,
		logger:   logging.For(logger, logging.CategorySource).With(zap.String("source", cfg.Name)),
	}, nil
}

func (c *Command) Name() string { return c.cfg.Name }

func (c *Command) ValidityTest() *tactile.Command { return c.cfg.Validity }

// ListIssues runs the tool and binds each finding to the current file
// content. Tools exit non-zero when they report findings, so the exit
// status alone is not treated as a failure.
func (c *Command) ListIssues(ctx context.Context) ([]*issue.Issue, error) {
	res, err := c.executor.Execute(ctx, c.cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", c.cfg.Name, err)
	}
	if res.Killed {
		return nil, fmt.Errorf("source %s: %s was stopped: %s", c.cfg.Name, c.cfg.Command.CommandString(), res.KillReason)
	}

	output := []byte(res.Stdout)
	if c.cfg.Format == FormatGNU {
		output = []byte(res.Combined)
	}
	findings, err := c.parse(output)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w (stderr: %s)", c.cfg.Name, err, strings.TrimSpace(res.Stderr))
	}
	if len(findings) == 0 && !res.Passed() {
		c.logger.Warn("Tool failed without reporting findings",
			zap.Int("exit", res.ExitCode),
			zap.String("stderr", strings.TrimSpace(res.Stderr)))
	}

	issues, err := c.bind(findings)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", c.cfg.Name, err)
	}
	c.logger.Debug("Listed issues", zap.Int("findings", len(findings)), zap.Int("issues", len(issues)))
	return issues, nil
}

// bind turns findings into issues, reading each file once and dropping
// duplicates. File-level findings (line 0) cannot be anchored and are
// skipped.
func (c *Command) bind(findings []Finding) ([]*issue.Issue, error) {
	files := make(map[string][]string)
	seen := make(map[string]bool)
	var issues []*issue.Issue

	for _, f := range findings {
		if f.Line < 1 {
			c.logger.Debug("Skipping finding without a line", zap.String("file", f.File), zap.String("message", f.Message))
			continue
		}
		path := f.File
		if !filepath.IsAbs(path) && c.cfg.Root != "" {
			path = filepath.Join(c.cfg.Root, path)
		}
		lines, ok := files[path]
		if !ok {
			var err error
			if lines, err = issue.ReadLines(path); err != nil {
				return nil, err
			}
			files[path] = lines
		}

		typ := f.Severity
		if typ == "" {
			typ = c.cfg.IssueType
		}
		is, err := issue.NewFromLines(issue.Spec{
			Tool:        c.cfg.Name,
			Root:        c.cfg.Root,
			File:        f.File,
			Line:        f.Line,
			Description: f.Message,
			Type:        typ,
		}, lines)
		if err != nil {
			return nil, err
		}
		if seen[is.Key()] {
			continue
		}
		seen[is.Key()] = true
		issues = append(issues, is)
	}
	return issues, nil
}
