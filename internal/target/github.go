package target

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v68/github"
	"go.uber.org/zap"
)

// ReviewCommenter is the slice of the GitHub pull request API this target
// uses. *github.PullRequestsService satisfies it.
type ReviewCommenter interface {
	CreateComment(ctx context.Context, owner, repo string, number int, comment *github.PullRequestComment) (*github.PullRequestComment, *github.Response, error)
}

// GitHubOptions identifies the pull request suggestions are posted to.
type GitHubOptions struct {
	Owner    string
	Repo     string
	Number   int
	CommitID string // head commit the line numbers refer to
	Root     string // local checkout root; paths are made relative to it
}

// GitHubSuggestion posts each fix as a review suggestion. The fix is applied
// locally only so it can be verified; the working copy is restored after
// the suggestion is posted, so issue positions never shift.
type GitHubSuggestion struct {
	*FileTarget
	opts     GitHubOptions
	comments ReviewCommenter
	posted   int
}

// NewGitHubSuggestion creates the target.
func NewGitHubSuggestion(opts GitHubOptions, comments ReviewCommenter, logger *zap.Logger) *GitHubSuggestion {
	return &GitHubSuggestion{FileTarget: NewFileTarget(logger), opts: opts, comments: comments}
}

// NewGitHubClient returns the pull request service for token.
func NewGitHubClient(token string) ReviewCommenter {
	return github.NewClient(nil).WithAuthToken(token).PullRequests
}

func (t *GitHubSuggestion) Name() string          { return "github" }
func (t *GitHubSuggestion) RequiresRefresh() bool { return false }

// Posted is the number of suggestions created.
func (t *GitHubSuggestion) Posted() int { return t.posted }

// Commit posts the suggestion and restores the local file.
func (t *GitHubSuggestion) Commit(ctx context.Context) bool {
	p := t.Pending()
	if p == nil {
		t.logger.Error("Commit called on idle target")
		return false
	}
	is := p.Issue()

	path, err := t.repoPath(is.Path())
	if err != nil {
		t.logger.Error("Cannot map file to repository path", zap.String("file", is.File()), zap.Error(err))
		return false
	}

	comment := &github.PullRequestComment{
		Body:     github.Ptr(suggestionBody(is.Tool(), is.Description(), p.ProposedLines())),
		CommitID: github.Ptr(t.opts.CommitID),
		Path:     github.Ptr(path),
		Line:     github.Ptr(p.End()),
		Side:     github.Ptr("RIGHT"),
	}
	if p.Start() < p.End() {
		comment.StartLine = github.Ptr(p.Start())
		comment.StartSide = github.Ptr("RIGHT")
	}

	created, _, err := t.comments.CreateComment(ctx, t.opts.Owner, t.opts.Repo, t.opts.Number, comment)
	if err != nil {
		t.logger.Warn("Failed to post suggestion", zap.String("issue", is.Key()), zap.Error(err))
		return false
	}
	t.posted++
	t.logger.Info("Posted suggestion",
		zap.String("issue", is.Key()),
		zap.String("url", created.GetHTMLURL()))

	if err := t.FileTarget.Revert(ctx); err != nil {
		t.logger.Error("Failed to restore working copy after posting", zap.Error(err))
		return false
	}
	return true
}

func (t *GitHubSuggestion) repoPath(path string) (string, error) {
	if t.opts.Root == "" {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	root, err := filepath.Abs(t.opts.Root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside %s", path, t.opts.Root)
	}
	return filepath.ToSlash(rel), nil
}

func suggestionBody(tool, description string, lines []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**: %s\n\n", tool, description)
	sb.WriteString("```suggestion\n")
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	sb.WriteString("```\n")
	return sb.String()
}
