package target

import (
	"context"

	"go.uber.org/zap"

	"codemend/internal/diff"
	"codemend/internal/logging"
)

// DryRun wraps a target so verified fixes are shown but never kept. Commit
// logs the diff and reverts the inner target, so positions never shift.
type DryRun struct {
	Target
	logger *zap.Logger
}

// NewDryRun wraps inner.
func NewDryRun(inner Target, logger *zap.Logger) *DryRun {
	return &DryRun{Target: inner, logger: logging.For(logger, logging.CategoryTarget)}
}

func (d *DryRun) Name() string          { return d.Target.Name() + " (dry run)" }
func (d *DryRun) RequiresRefresh() bool { return false }

func (d *DryRun) Commit(ctx context.Context) bool {
	p := d.Pending()
	if p == nil {
		d.logger.Error("Commit called on idle target")
		return false
	}
	out, err := diff.Unified(p.Issue().File(), p.AllLines(), p.Result(), 3)
	if err != nil {
		d.logger.Warn("Failed to render diff", zap.Error(err))
	}
	d.logger.Info("Dry run, not keeping fix", zap.String("issue", p.Issue().Key()), zap.String("diff", out))
	return d.Revert(ctx) == nil
}
