// Package command is a backend that pipes the prompt to an external program
// and uses its standard output as the single candidate answer.
package command

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"codemend/internal/backend"
	"codemend/internal/logging"
	"codemend/internal/tactile"
)

// Backend runs Cmd once per query with the prompt on stdin.
type Backend struct {
	backend.Nop
	name     string
	cmd      tactile.Command
	executor tactile.Executor
	logger   *zap.Logger
}

// New creates a command backend.
func New(name string, cmd tactile.Command, executor tactile.Executor, logger *zap.Logger) *Backend {
	if name == "" {
		name = cmd.Binary
	}
	return &Backend{
		name:     name,
		cmd:      cmd,
		executor: executor,
		logger:   logging.For(logger, logging.CategoryBackend).With(zap.String("backend", name)),
	}
}

func (b *Backend) Name() string { return b.name }

// Query returns the program's output. A failed start or a non-zero exit is
// no answer.
func (b *Backend) Query(ctx context.Context, req backend.Request) []string {
	cmd := b.cmd
	cmd.Stdin = req.Text
	cmd.Environment = append(append([]string(nil), cmd.Environment...),
		"MEND_TOOL="+req.Issue.Tool(),
		"MEND_FILE="+req.Issue.File(),
		"MEND_LANGUAGE="+req.Issue.Language(),
	)

	res, err := b.executor.Execute(ctx, cmd)
	if err != nil {
		b.logger.Warn("Command backend failed", zap.String("issue", req.Issue.Key()), zap.Error(err))
		return nil
	}
	if !res.Passed() {
		b.logger.Warn("Command backend exited non-zero",
			zap.String("issue", req.Issue.Key()),
			zap.Int("exit", res.ExitCode),
			zap.String("stderr", res.Stderr))
		return nil
	}
	answer := backend.ExtractCode(res.Stdout)
	if strings.TrimSpace(answer) == "" {
		return nil
	}
	return []string{answer}
}
