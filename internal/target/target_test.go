package target

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codemend/internal/issue"
	"codemend/internal/tactile"
)

// writeProposal creates path with content and a proposal for anchor with
// window [start, end], accepting proposed.
func writeProposal(t *testing.T, content string, anchor, start, end int, proposed ...string) (string, *issue.Proposal) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))

	is, err := issue.New(issue.Spec{Tool: "lint", Root: dir, File: "f.go", Line: anchor, Description: "bad"})
	require.NoError(t, err)
	lines, err := is.ReadLines()
	require.NoError(t, err)
	p, err := issue.NewProposal(is, lines, start, end)
	require.NoError(t, err)
	if proposed != nil {
		p.Accept(proposed)
	}
	return path, p
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFileTarget_ApplyAndRevert(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		proposed []string
		want     string
	}{
		{"lf", "a\nb\nc\nd\n", []string{"B", "B2"}, "a\nB\nB2\nc\nd\n"},
		{"crlf", "a\r\nb\r\nc\r\nd\r\n", []string{"B", "B2"}, "a\r\nB\r\nB2\r\nc\r\nd\r\n"},
		{"mixed outside window kept", "a\r\nb\nc\r\nd", []string{"B"}, "a\r\nB\nc\r\nd"},
		{"shrink", "a\nb\nc\nd\n", []string{}, "a\nc\nd\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, p := writeProposal(t, tt.content, 2, 2, 2, tt.proposed...)
			ft := NewFileTarget(nil)
			ctx := context.Background()

			require.NoError(t, ft.Apply(ctx, p))
			assert.Same(t, p, ft.Pending())
			assert.Equal(t, tt.want, read(t, path))

			require.NoError(t, ft.Revert(ctx))
			assert.Nil(t, ft.Pending())
			assert.Equal(t, tt.content, read(t, path), "revert must restore bytes exactly")
		})
	}
}

func TestFileTarget_NoFinalNewlinePreserved(t *testing.T) {
	path, p := writeProposal(t, "a\nb\nc", 3, 2, 3, "b", "C")
	ft := NewFileTarget(nil)
	require.NoError(t, ft.Apply(context.Background(), p))
	assert.Equal(t, "a\nb\nC", read(t, path))
	assert.True(t, ft.Commit(context.Background()))
	assert.Nil(t, ft.Pending())
	assert.Equal(t, "a\nb\nC", read(t, path))
}

func TestFileTarget_DoubleApplyRejected(t *testing.T) {
	path, p := writeProposal(t, "a\nb\nc\n", 2, 1, 3, "a", "X", "c")
	ft := NewFileTarget(nil)
	ctx := context.Background()

	require.NoError(t, ft.Apply(ctx, p))
	err := ft.Apply(ctx, p)
	assert.True(t, errors.Is(err, ErrAlreadyApplied))
	assert.Same(t, p, ft.Pending())

	require.NoError(t, ft.Revert(ctx))
	assert.Equal(t, "a\nb\nc\n", read(t, path))
}

func TestFileTarget_IdleMisuse(t *testing.T) {
	ft := NewFileTarget(nil)
	assert.True(t, errors.Is(ft.Revert(context.Background()), ErrNotApplied))
	assert.False(t, ft.Commit(context.Background()))
	assert.True(t, ft.RequiresRefresh())
}

func TestFileTarget_Stale(t *testing.T) {
	path, p := writeProposal(t, "a\nb\nc\n", 2, 1, 3, "a", "X", "c")
	require.NoError(t, os.WriteFile(path, []byte("a\nchanged\nc\n"), 0o640))

	ft := NewFileTarget(nil)
	err := ft.Apply(context.Background(), p)
	assert.True(t, errors.Is(err, ErrStale))
	assert.Nil(t, ft.Pending())
	assert.Equal(t, "a\nchanged\nc\n", read(t, path))
}

func TestFileTarget_RevertRestoresMode(t *testing.T) {
	path, p := writeProposal(t, "a\nb\n", 1, 1, 2, "A", "b")
	require.NoError(t, os.Chmod(path, 0o600))

	ft := NewFileTarget(nil)
	require.NoError(t, ft.Apply(context.Background(), p))
	require.NoError(t, ft.Revert(context.Background()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

type scriptedExecutor struct {
	calls [][]string
	fail  map[string]bool // first git argument -> exit 1
}

func (s *scriptedExecutor) Execute(_ context.Context, cmd tactile.Command) (*tactile.ExecutionResult, error) {
	s.calls = append(s.calls, append([]string{cmd.Binary}, cmd.Arguments...))
	if s.fail[cmd.Arguments[0]] {
		return &tactile.ExecutionResult{ExitCode: 1, Combined: "fatal"}, nil
	}
	return &tactile.ExecutionResult{ExitCode: 0}, nil
}

func (s *scriptedExecutor) Validate(tactile.Command) error { return nil }

func TestGitTarget_Commit(t *testing.T) {
	path, p := writeProposal(t, "a\nb\nc\n", 2, 1, 3, "a", "X", "c")
	exec := &scriptedExecutor{}
	gt, err := NewGitTarget(GitOptions{Dir: filepath.Dir(path), RunID: "run-1"}, exec, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, gt.Apply(ctx, p))
	require.True(t, gt.Commit(ctx))
	assert.Nil(t, gt.Pending())
	assert.Equal(t, "a\nX\nc\n", read(t, path))

	require.Len(t, exec.calls, 2)
	assert.Equal(t, []string{"git", "add", "--", path}, exec.calls[0])
	commit := strings.Join(exec.calls[1], " ")
	assert.Contains(t, commit, "Fix lint issue in f.go:2")
	assert.Contains(t, commit, "Mend-Run: run-1")
	assert.True(t, gt.RequiresRefresh())
	assert.Equal(t, "git", gt.Name())
}

func TestGitTarget_RelativeWorkspace(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "sub", "f.go"), []byte("a\nb\nc\n"), 0o644))
	t.Chdir(base)
	wd, err := os.Getwd()
	require.NoError(t, err)

	is, err := issue.New(issue.Spec{Tool: "lint", Root: "sub", File: "f.go", Line: 2, Description: "bad"})
	require.NoError(t, err)
	lines, err := is.ReadLines()
	require.NoError(t, err)
	p, err := issue.NewProposal(is, lines, 1, 3)
	require.NoError(t, err)
	p.Accept([]string{"a", "X", "c"})

	exec := &scriptedExecutor{}
	gt, err := NewGitTarget(GitOptions{Dir: "sub"}, exec, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, gt.Apply(ctx, p))
	require.True(t, gt.Commit(ctx))
	require.Len(t, exec.calls, 2)
	// git runs inside sub; a "sub/f.go" pathspec would match nothing there.
	assert.Equal(t, []string{"git", "add", "--", filepath.Join(wd, "sub", "f.go")}, exec.calls[0])
}

func TestGitTarget_CommitFailureLeavesApplied(t *testing.T) {
	path, p := writeProposal(t, "a\nb\nc\n", 2, 1, 3, "a", "X", "c")
	exec := &scriptedExecutor{fail: map[string]bool{"commit": true}}
	gt, err := NewGitTarget(GitOptions{}, exec, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, gt.Apply(ctx, p))
	assert.False(t, gt.Commit(ctx))
	assert.Same(t, p, gt.Pending())
	assert.Equal(t, "reset", exec.calls[len(exec.calls)-1][1])

	require.NoError(t, gt.Revert(ctx))
	assert.Equal(t, "a\nb\nc\n", read(t, path))
}

func TestGitTarget_BadTemplate(t *testing.T) {
	_, err := NewGitTarget(GitOptions{Message: "{{.Tool"}, &scriptedExecutor{}, nil)
	assert.Error(t, err)
}

type fakeCommenter struct {
	got   *github.PullRequestComment
	owner string
	num   int
	err   error
}

func (f *fakeCommenter) CreateComment(_ context.Context, owner, _ string, number int, c *github.PullRequestComment) (*github.PullRequestComment, *github.Response, error) {
	f.got, f.owner, f.num = c, owner, number
	if f.err != nil {
		return nil, nil, f.err
	}
	return &github.PullRequestComment{HTMLURL: github.Ptr("https://example.invalid/c/1")}, nil, nil
}

func TestGitHubSuggestion_PostsAndRestores(t *testing.T) {
	path, p := writeProposal(t, "a\nb\nc\nd\n", 2, 1, 3, "a", "X", "c")
	fc := &fakeCommenter{}
	gh := NewGitHubSuggestion(GitHubOptions{Owner: "o", Repo: "r", Number: 7, CommitID: "abc", Root: filepath.Dir(path)}, fc, nil)
	ctx := context.Background()

	require.NoError(t, gh.Apply(ctx, p))
	assert.Equal(t, "a\nX\nc\nd\n", read(t, path), "applied locally for verification")
	require.True(t, gh.Commit(ctx))

	assert.Nil(t, gh.Pending())
	assert.Equal(t, "a\nb\nc\nd\n", read(t, path), "working copy restored after posting")
	assert.False(t, gh.RequiresRefresh())
	assert.Equal(t, 1, gh.Posted())

	require.NotNil(t, fc.got)
	assert.Equal(t, "o", fc.owner)
	assert.Equal(t, 7, fc.num)
	assert.Equal(t, "f.go", fc.got.GetPath())
	assert.Equal(t, 1, fc.got.GetStartLine())
	assert.Equal(t, 3, fc.got.GetLine())
	assert.Equal(t, "abc", fc.got.GetCommitID())
	assert.Contains(t, fc.got.GetBody(), "```suggestion\na\nX\nc\n```")
}

func TestGitHubSuggestion_PostFailure(t *testing.T) {
	path, p := writeProposal(t, "a\nb\nc\n", 2, 2, 2, "X")
	gh := NewGitHubSuggestion(GitHubOptions{Root: filepath.Dir(path)}, &fakeCommenter{err: errors.New("403")}, nil)
	ctx := context.Background()

	require.NoError(t, gh.Apply(ctx, p))
	assert.False(t, gh.Commit(ctx))
	assert.Same(t, p, gh.Pending())
	require.NoError(t, gh.Revert(ctx))
	assert.Equal(t, "a\nb\nc\n", read(t, path))
}

func TestDryRun(t *testing.T) {
	path, p := writeProposal(t, "a\nb\nc\n", 2, 1, 3, "a", "X", "c")
	d := NewDryRun(NewFileTarget(nil), nil)
	ctx := context.Background()

	require.NoError(t, d.Apply(ctx, p))
	assert.Equal(t, "a\nX\nc\n", read(t, path))
	require.True(t, d.Commit(ctx))
	assert.Nil(t, d.Pending())
	assert.Equal(t, "a\nb\nc\n", read(t, path))
	assert.False(t, d.RequiresRefresh())
	assert.Equal(t, "file (dry run)", d.Name())
}
