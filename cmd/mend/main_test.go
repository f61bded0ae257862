package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codemend/internal/backend/cache"
	"codemend/internal/config"
	"codemend/internal/issue"
	"codemend/internal/resolve"
	"codemend/internal/target"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses grep and sed")
	}
}

func sampleFile(t *testing.T, dir string) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("package main\n\nfunc f() {\n")
	for i := 4; i <= 16; i++ {
		if i == 6 || i == 14 {
			fmt.Fprintf(&sb, "\tx%d := bad()\n", i)
			continue
		}
		fmt.Fprintf(&sb, "\tstep%d()\n", i)
	}
	sb.WriteString("}\n")
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return sb.String()
}

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Workspace = dir
	cfg.Sources = []config.SourceConfig{{
		Name:    "grep",
		Command: "grep",
		Args:    []string{"-Hn", "bad()", "main.go"},
		Format:  "gnu",
	}}
	cfg.Backends = []config.BackendConfig{
		{Name: "cache", Kind: "cache", Path: ".mend/cache.msgpack"},
		{Name: "sed", Kind: "command", Command: "sed", Args: []string{"s/bad()/good()/g"}},
	}
	cfg.Resolve.ContextLines = 0
	return cfg
}

func TestRunFix_EndToEnd(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	original := sampleFile(t, dir)
	cfg := testConfig(dir)

	reports, err := runFix(context.Background(), newApp(cfg, nil), fixOptions{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 2, reports[0].Fixed())
	assert.Equal(t, "sed", reports[0].Issues[0].Backend)

	data, err := os.ReadFile(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, strings.ReplaceAll(original, "bad()", "good()"), string(data))

	store, err := cache.Open(filepath.Join(dir, ".mend", "cache.msgpack"), "")
	require.NoError(t, err)
	n, err := store.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "answers flushed when the chain closes")
	require.NoError(t, store.Close())

	// Same findings again: the cache alone answers them.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(original), 0o644))
	cfg.Backends = cfg.Backends[:1]
	reports, err = runFix(context.Background(), newApp(cfg, nil), fixOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, reports[0].Fixed())
	assert.Equal(t, "cache", reports[0].Issues[0].Backend)
}

func TestRunFix_DryRunKeepsFiles(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	original := sampleFile(t, dir)

	reports, err := runFix(context.Background(), newApp(testConfig(dir), nil), fixOptions{dryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, reports[0].Fixed())
	assert.Equal(t, "file (dry run)", reports[0].Target)
	assert.Contains(t, reports[0].Issues[0].Diff, "+\tx6 := good()")

	data, err := os.ReadFile(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestRunFix_Misconfigured(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Backends = nil
	_, err := runFix(context.Background(), newApp(cfg, nil), fixOptions{})
	assert.ErrorContains(t, err, "no backends")

	cfg = testConfig(t.TempDir())
	_, err = runFix(context.Background(), newApp(cfg, nil), fixOptions{source: "nope"})
	assert.ErrorContains(t, err, `no source named "nope"`)
}

func TestApp_Variants(t *testing.T) {
	cfg := config.DefaultConfig()
	a := newApp(cfg, nil)
	assert.Len(t, a.variants(), 4)

	r := 5
	cfg.Resolve.Variants = []config.VariantConfig{{Radius: &r}, {Block: true}, {Start: 2, End: 9}}
	got := a.variants()
	require.Len(t, got, 3)
	assert.Equal(t, issue.RadiusVariant{Radius: 5}, got[0])
	assert.Equal(t, "block", got[1].Name())
	assert.Equal(t, issue.RangeVariant{Start: 2, End: 9}, got[2])
}

func TestApp_Target(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace = t.TempDir()
	a := newApp(cfg, nil)

	tests := []struct {
		kind   string
		dryRun bool
		want   string
	}{
		{"file", false, "file"},
		{"git", false, "git"},
		{"github", false, "github"},
		{"git", true, "git (dry run)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg.Target.Kind = tt.kind
			tgt, err := a.target("run", tt.dryRun)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tgt.Name())
		})
	}

	cfg.Target = config.TargetConfig{Kind: "git", CommitMessage: "{{"}
	_, err := a.target("run", false)
	assert.Error(t, err)
}

func TestApp_ChainClosesOnFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace = t.TempDir()
	cfg.Backends = []config.BackendConfig{
		{Name: "cache", Kind: "cache", Path: "c.db"},
		{Name: "gemini", Kind: "gemini"},
	}
	_, err := newApp(cfg, nil).chain(context.Background())
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}

func TestRenderReport(t *testing.T) {
	r := &resolve.Report{
		RunID:  "abc",
		Source: "vet",
		Target: "file",
		Issues: []resolve.IssueResult{
			{Key: "a.go:1:vet:x", Fixed: true, Backend: "cache", Variant: "radius-3", Attempts: 1, Diff: "--- a/a.go\n+++ b/a.go\n@@ -1 +1 @@\n-old\n+new\n"},
			{Key: "b.go:2:vet:y", Attempts: 4},
		},
	}
	out := renderReport(r, true)
	assert.Contains(t, out, "a.go:1:vet:x")
	assert.Contains(t, out, "b.go:2:vet:y")
	assert.Contains(t, out, "+new")
	assert.Contains(t, out, "5 attempts")

	assert.NotContains(t, renderReport(r, false), "+new")
}

func TestSkipDir(t *testing.T) {
	assert.True(t, skipDir(".git"))
	assert.True(t, skipDir("node_modules"))
	assert.False(t, skipDir("internal"))
	assert.False(t, skipDir("."))
}

type countingCommenter struct{ calls int }

func (c *countingCommenter) CreateComment(_ context.Context, _, _ string, _ int, comment *github.PullRequestComment) (*github.PullRequestComment, *github.Response, error) {
	c.calls++
	return comment, nil, nil
}

func TestTargetNote(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("a\nb\nc\n"), 0o644))
	is, err := issue.New(issue.Spec{Tool: "vet", Root: dir, File: "a.go", Line: 2, Description: "b"})
	require.NoError(t, err)
	lines, err := is.ReadLines()
	require.NoError(t, err)
	p, err := issue.NewProposal(is, lines, 1, 3)
	require.NoError(t, err)
	p.Accept([]string{"a", "B", "c"})

	tc := config.TargetConfig{Kind: "github", GitHub: config.GitHubConfig{Owner: "acme", Repo: "tool", PullNumber: 7}}
	comments := &countingCommenter{}
	gs := target.NewGitHubSuggestion(target.GitHubOptions{Owner: "acme", Repo: "tool", Number: 7, Root: dir}, comments, nil)
	ctx := context.Background()
	require.NoError(t, gs.Apply(ctx, p))
	require.True(t, gs.Commit(ctx))

	assert.Equal(t, 1, comments.calls)
	assert.Equal(t, "Posted 1 review suggestions to acme/tool#7", targetNote(gs, tc))
	assert.Empty(t, targetNote(target.NewFileTarget(nil), tc))
}
