// Package resolve runs the issue resolution loop: for each issue it tries
// proposal variants against the backend chain until a candidate merges,
// applies, verifies and commits, reverting the target after every failed
// attempt.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codemend/internal/backend"
	"codemend/internal/diff"
	"codemend/internal/issue"
	"codemend/internal/logging"
	"codemend/internal/merge"
	"codemend/internal/source"
	"codemend/internal/target"
)

// DefaultMaxHops bounds how many chain nodes are queried per proposal.
const DefaultMaxHops = 10

// Options tune a Solver.
type Options struct {
	// Variants are tried in order for every issue. Empty means
	// issue.DefaultVariants without a block finder.
	Variants []issue.Variant
	// MaxHops caps the chain nodes queried per proposal. Zero means
	// DefaultMaxHops.
	MaxHops int
	// ContextLines of surrounding code are added to backend prompts.
	ContextLines int
	// RunID labels the run; a random one is generated when empty.
	RunID string
}

// Solver owns one resolution loop.
type Solver struct {
	chain    *backend.Chain
	merger   *merge.Merger
	verifier *Verifier
	opts     Options
	logger   *zap.Logger
}

// NewSolver creates a solver over chain.
func NewSolver(chain *backend.Chain, verifier *Verifier, opts Options, logger *zap.Logger) *Solver {
	if len(opts.Variants) == 0 {
		opts.Variants = issue.DefaultVariants(nil)
	}
	if opts.MaxHops <= 0 {
		opts.MaxHops = DefaultMaxHops
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Solver{
		chain:    chain,
		merger:   merge.New(logger),
		verifier: verifier,
		opts:     opts,
		logger:   logging.For(logger, logging.CategoryResolve),
	}
}

// RunID identifies this solver's run.
func (s *Solver) RunID() string { return s.opts.RunID }

// SolveIssues works through the issues of src, fixing what it can into tgt.
//
// Expected failures (no answer, merge failure, failed verification, failed
// commit) only leave an issue unfixed. The returned error carries contract
// violations, construction errors, failures to list issues or to revert,
// and context cancellation. The target is never left applied on return.
func (s *Solver) SolveIssues(ctx context.Context, src source.Source, tgt target.Target) (*Report, error) {
	started := time.Now()
	report := &Report{RunID: s.opts.RunID, Source: src.Name(), Target: tgt.Name()}
	defer func() { report.Duration = time.Since(started) }()

	log := s.logger.With(zap.String("run", s.opts.RunID), zap.String("source", src.Name()), zap.String("target", tgt.Name()))

	issues, err := src.ListIssues(ctx)
	if err != nil {
		return report, fmt.Errorf("list issues: %w", err)
	}
	log.Info("Resolving issues", zap.Int("count", len(issues)), zap.Strings("chain", s.chain.Names()))

	// Findings are counted by identity, which ignores the line, so a fix
	// that moves a finding cannot make it look new. Each identity is fixed
	// at most as often as it was reported at the start.
	allowed := make(map[string]int)
	for _, is := range issues {
		allowed[is.Identity()]++
	}
	fixed := make(map[string]int)

	cursor := 0
	for cursor < len(issues) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		is := issues[cursor]

		if fixed[is.Identity()] >= max(1, allowed[is.Identity()]) {
			cursor++
			continue
		}

		res, err := s.solveIssue(ctx, is, len(issues), src, tgt)
		report.Issues = append(report.Issues, res)
		if err != nil {
			return report, err
		}
		if !res.Fixed {
			log.Info("Unable to fix issue", zap.String("issue", is.String()), zap.Int("attempts", res.Attempts))
			cursor++
			continue
		}

		log.Info("Successfully fixed issue",
			zap.String("issue", is.String()),
			zap.String("backend", res.Backend),
			zap.String("variant", res.Variant))
		fixed[is.Identity()]++

		if !tgt.RequiresRefresh() {
			cursor++
			continue
		}
		// Line numbers may have shifted, so the list is fetched again. When
		// the fixed issue is gone the cursor already points at the next one;
		// a fix passed by a validity test can leave it in place, and then
		// the cursor steps past it.
		before := len(issues)
		if issues, err = src.ListIssues(ctx); err != nil {
			return report, fmt.Errorf("list issues: %w", err)
		}
		if len(issues) >= before {
			cursor++
		}
	}

	log.Info("Resolution finished",
		zap.Int("fixed", report.Fixed()),
		zap.Int("unfixed", report.Unfixed()),
		zap.Int("attempts", report.Attempts()))
	return report, nil
}

// solveIssue tries every variant and chain hop for one issue. baseline is
// the issue count the fix has to beat.
func (s *Solver) solveIssue(ctx context.Context, is *issue.Issue, baseline int, src source.Source, tgt target.Target) (IssueResult, error) {
	res := IssueResult{Key: is.Key()}

	lines, err := is.ReadLines()
	if err != nil {
		return res, err
	}
	if is.Line() > len(lines) {
		return res, &issue.RangeError{File: is.File(), Line: is.Line(), Count: len(lines)}
	}
	hops := min(s.opts.MaxHops, s.chain.Len())

	for p, err := range is.Proposals(lines, s.opts.Variants) {
		if err != nil {
			return res, err
		}
		req := backend.BuildRequest(p, s.opts.ContextLines)

		for hop := range hops {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			node := s.chain.At(hop)
			answers := node.Query(ctx, req)
			s.logger.Debug("Queried backend",
				zap.String("proposal", p.String()),
				zap.String("backend", node.Name()),
				zap.Int("answers", len(answers)))

			for _, answer := range answers {
				res.Attempts++
				cand := p.Fresh()
				ok, err := s.attempt(ctx, cand, answer, baseline, src, tgt)
				if err != nil {
					return res, err
				}
				if !ok {
					continue
				}

				res.Fixed = true
				res.Backend = node.Name()
				res.Variant = cand.Variant()
				if res.Diff, err = diff.Unified(is.File(), cand.AllLines(), cand.Result(), 3); err != nil {
					s.logger.Warn("Failed to render diff", zap.Error(err))
				}
				s.chain.Report(ctx, hop, is, cand)
				return res, nil
			}
		}
	}
	return res, nil
}

// attempt runs one candidate through merge, apply, verify and commit. It
// reports whether the fix was committed. Whatever happens, the target is
// idle when attempt returns.
func (s *Solver) attempt(ctx context.Context, p *issue.Proposal, answer string, baseline int, src source.Source, tgt target.Target) (ok bool, err error) {
	if !s.merger.Merge(p, answer) {
		return false, nil
	}

	defer func() {
		if tgt.Pending() == nil {
			return
		}
		if rerr := tgt.Revert(ctx); rerr != nil {
			err = errors.Join(err, fmt.Errorf("revert %s: %w", p, rerr))
			ok = false
		}
	}()

	if err := tgt.Apply(ctx, p); err != nil {
		if errors.Is(err, target.ErrAlreadyApplied) {
			return false, err
		}
		s.logger.Warn("Failed to apply proposal", zap.String("proposal", p.String()), zap.Error(err))
		return false, nil
	}

	if !s.verifier.Verify(ctx, src, baseline) {
		s.logger.Debug("Fix did not verify", zap.String("proposal", p.String()))
		return false, nil
	}

	if !tgt.Commit(ctx) {
		s.logger.Warn("Commit failed", zap.String("proposal", p.String()))
		return false, nil
	}
	return true, nil
}
