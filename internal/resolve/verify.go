package resolve

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"codemend/internal/logging"
	"codemend/internal/source"
	"codemend/internal/tactile"
)

// Verifier decides whether a tentatively applied fix improved the code.
//
// When the source declares a validity test, the fix passes if the test
// exits zero. Otherwise the source is listed again and the fix passes if
// fewer issues remain than before it was applied. The validity test exists
// for sources that are too expensive to re-list on every attempt.
type Verifier struct {
	executor tactile.Executor
	logger   *zap.Logger
}

// NewVerifier creates a verifier that runs validity tests through executor.
func NewVerifier(executor tactile.Executor, logger *zap.Logger) *Verifier {
	return &Verifier{executor: executor, logger: logging.For(logger, logging.CategoryResolve)}
}

// Verify reports whether the fix currently applied is an improvement over
// baseline, the issue count captured before it was applied. Failures to
// run the check count as a failed verification.
func (v *Verifier) Verify(ctx context.Context, src source.Source, baseline int) bool {
	if cmd := src.ValidityTest(); cmd != nil {
		return v.runValidityTest(ctx, *cmd)
	}

	issues, err := src.ListIssues(ctx)
	if err != nil {
		v.logger.Warn("Re-listing issues failed", zap.String("source", src.Name()), zap.Error(err))
		return false
	}
	v.logger.Debug("Issue count after fix", zap.Int("before", baseline), zap.Int("after", len(issues)))
	return len(issues) < baseline
}

func (v *Verifier) runValidityTest(ctx context.Context, cmd tactile.Command) bool {
	res, err := v.executor.Execute(ctx, cmd)
	if err != nil {
		v.logger.Warn("Validity test could not run", zap.String("command", cmd.CommandString()), zap.Error(err))
		return false
	}
	if !res.Passed() {
		v.logger.Debug("Validity test failed",
			zap.String("command", cmd.CommandString()),
			zap.Int("exit", res.ExitCode),
			zap.Bool("killed", res.Killed),
			zap.String("output", tail(res.Combined, 2000)))
		return false
	}
	return true
}

// tail keeps the last n bytes of s for logging.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
