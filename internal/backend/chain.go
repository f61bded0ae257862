package backend

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"codemend/internal/issue"
	"codemend/internal/logging"
)

// Chain is an ordered list of backends, highest priority first. It is a
// plain slice with positional access; callers walk it with an index cursor.
type Chain struct {
	nodes  []Backend
	logger *zap.Logger
}

// NewChain builds a chain from nodes in priority order.
func NewChain(logger *zap.Logger, nodes ...Backend) *Chain {
	return &Chain{nodes: nodes, logger: logging.For(logger, logging.CategoryBackend)}
}

// Len is the number of nodes.
func (c *Chain) Len() int { return len(c.nodes) }

// At returns the node with priority rank i (0 is highest).
func (c *Chain) At(i int) Backend { return c.nodes[i] }

// Names lists node names in priority order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.nodes))
	for i, n := range c.nodes {
		names[i] = n.Name()
	}
	return names
}

// Report propagates a successful fix from the top of the chain down to the
// node that produced it, so higher-priority caches that missed learn the
// answer.
func (c *Chain) Report(ctx context.Context, producer int, is *issue.Issue, p *issue.Proposal) {
	for i := 0; i <= producer && i < len(c.nodes); i++ {
		c.nodes[i].ReportSuccessfulFix(ctx, is, p)
	}
}

// Close closes every node, each flushing its own pending state, and joins
// the errors.
func (c *Chain) Close() error {
	var errs []error
	for _, n := range c.nodes {
		if n.Modified() {
			c.logger.Info("Flushing backend state", zap.String("backend", n.Name()))
		}
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
