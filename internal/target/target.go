// Package target holds the transactional destinations a fix is written to.
//
// A target is Idle or Applied. Apply moves it to Applied; Commit or Revert
// move it back to Idle. Only one proposal is outstanding at a time and a
// second Apply before the first is resolved is a programming error.
package target

import (
	"context"
	"errors"

	"codemend/internal/issue"
)

var (
	// ErrAlreadyApplied is returned by Apply while another proposal is
	// outstanding. Callers must not retry it.
	ErrAlreadyApplied = errors.New("target: a proposal is already applied")

	// ErrNotApplied is returned by Revert on an idle target.
	ErrNotApplied = errors.New("target: no proposal is applied")

	// ErrStale is returned by Apply when the file no longer matches the
	// lines the proposal was cut from.
	ErrStale = errors.New("target: file changed since the proposal was made")
)

// Target receives tentative fixes.
type Target interface {
	Name() string

	// Apply writes p to the destination tentatively.
	Apply(ctx context.Context, p *issue.Proposal) error

	// Revert restores the destination to its state before Apply.
	Revert(ctx context.Context) error

	// Commit finalizes the applied proposal. On false the target stays
	// Applied and the caller must Revert.
	Commit(ctx context.Context) bool

	// RequiresRefresh reports whether a commit can shift the positions of
	// other reported issues, so the issue list must be fetched again.
	RequiresRefresh() bool

	// Pending is the outstanding proposal, nil when Idle.
	Pending() *issue.Proposal
}
