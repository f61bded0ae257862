package target

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"codemend/internal/issue"
	"codemend/internal/tactile"
)

// DefaultCommitMessage is used when no template is configured.
const DefaultCommitMessage = "Fix {{.Tool}} issue in {{.File}}:{{.Line}}\n\n{{.Description}}"

// GitTarget rewrites files like FileTarget and records each fix as its own
// git commit.
type GitTarget struct {
	*FileTarget
	dir      string
	message  *template.Template
	runID    string
	executor tactile.Executor
}

// GitOptions configures a GitTarget.
type GitOptions struct {
	Dir     string // repository working tree
	Message string // text/template over Tool, File, Line, Description, Type
	RunID   string // added as a Mend-Run trailer when set
}

// NewGitTarget creates a git target. It fails on an invalid message
// template.
func NewGitTarget(opts GitOptions, executor tactile.Executor, logger *zap.Logger) (*GitTarget, error) {
	msg := opts.Message
	if msg == "" {
		msg = DefaultCommitMessage
	}
	tmpl, err := template.New("commit").Parse(msg)
	if err != nil {
		return nil, err
	}
	return &GitTarget{
		FileTarget: NewFileTarget(logger),
		dir:        opts.Dir,
		message:    tmpl,
		runID:      opts.RunID,
		executor:   executor,
	}, nil
}

func (t *GitTarget) Name() string { return "git" }

// Commit stages the file and commits it. When git fails the file is
// unstaged again and the target stays Applied for the caller to revert.
func (t *GitTarget) Commit(ctx context.Context) bool {
	p := t.Pending()
	if p == nil {
		t.logger.Error("Commit called on idle target")
		return false
	}
	// Absolute, so the pathspec matches whatever t.dir is relative to.
	path, err := filepath.Abs(p.Issue().Path())
	if err != nil {
		t.logger.Error("Cannot resolve path", zap.String("file", p.Issue().File()), zap.Error(err))
		return false
	}

	msg, err := t.render(p.Issue())
	if err != nil {
		t.logger.Error("Commit message template failed", zap.Error(err))
		return false
	}

	if !t.git(ctx, "add", "--", path) {
		return false
	}
	if !t.git(ctx, "commit", "--quiet", "--only", "-m", msg, "--", path) {
		t.git(ctx, "reset", "--quiet", "--", path)
		return false
	}
	return t.FileTarget.Commit(ctx)
}

func (t *GitTarget) render(is *issue.Issue) (string, error) {
	var buf bytes.Buffer
	err := t.message.Execute(&buf, map[string]any{
		"Tool":        is.Tool(),
		"File":        is.File(),
		"Line":        is.Line(),
		"Description": is.Description(),
		"Type":        is.Type(),
	})
	if err != nil {
		return "", err
	}
	msg := strings.TrimSpace(buf.String())
	if t.runID != "" {
		msg += "\n\nMend-Run: " + t.runID
	}
	return msg, nil
}

func (t *GitTarget) git(ctx context.Context, args ...string) bool {
	res, err := t.executor.Execute(ctx, tactile.Command{
		Binary:           "git",
		Arguments:        args,
		WorkingDirectory: t.dir,
	})
	if err != nil {
		t.logger.Warn("git failed to run", zap.Strings("args", args), zap.Error(err))
		return false
	}
	if !res.Passed() {
		t.logger.Warn("git exited non-zero",
			zap.Strings("args", args),
			zap.Int("exit", res.ExitCode),
			zap.String("output", strings.TrimSpace(res.Combined)))
		return false
	}
	return true
}
