// Package cache is the answer-cache backend. It answers from previously
// committed fixes keyed by a hash of the issue description and window, and
// learns new answers when a fix further down the chain succeeds.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"codemend/internal/backend"
	"codemend/internal/issue"
	"codemend/internal/logging"
)

// Key hashes description and the window lines (anchor marker included).
func Key(description string, issueLines []string) string {
	sum := sha256.Sum256([]byte(description + "\n" + strings.Join(issueLines, "\n")))
	return hex.EncodeToString(sum[:])
}

// Backend answers from a Store. New answers are buffered and written once
// in Close.
type Backend struct {
	name   string
	store  Store
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]Entry
	now     func() time.Time
}

// New wraps store as a chain node.
func New(name string, store Store, logger *zap.Logger) *Backend {
	if name == "" {
		name = "cache"
	}
	return &Backend{
		name:    name,
		store:   store,
		logger:  logging.For(logger, logging.CategoryCache),
		pending: make(map[string]Entry),
		now:     time.Now,
	}
}

func (b *Backend) Name() string { return b.name }

// Query returns the cached answer for the request window, if any.
func (b *Backend) Query(ctx context.Context, req backend.Request) []string {
	key := Key(req.Issue.Description(), req.Lines)

	b.mu.Lock()
	e, ok := b.pending[key]
	b.mu.Unlock()
	if ok {
		return []string{e.Answer}
	}

	e, ok, err := b.store.Get(ctx, key)
	if err != nil {
		b.logger.Warn("Cache lookup failed", zap.String("issue", req.Issue.Key()), zap.Error(err))
		return nil
	}
	if !ok {
		b.logger.Debug("Cache miss", zap.String("issue", req.Issue.Key()))
		return nil
	}
	b.logger.Debug("Cache hit", zap.String("issue", req.Issue.Key()))
	return []string{e.Answer}
}

// ReportSuccessfulFix remembers the accepted replacement for the window.
func (b *Backend) ReportSuccessfulFix(_ context.Context, is *issue.Issue, p *issue.Proposal) {
	key := Key(is.Description(), p.IssueLines())
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[key] = Entry{
		Answer:      p.Replacement(),
		Tool:        is.Tool(),
		File:        is.File(),
		Description: is.Description(),
		CreatedAt:   b.now(),
	}
}

// Modified reports unsaved answers.
func (b *Backend) Modified() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending) > 0
}

// Close writes pending answers and closes the store.
func (b *Backend) Close() error {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[string]Entry)
	b.mu.Unlock()

	var flushErr error
	if len(pending) > 0 {
		if err := b.store.PutAll(context.Background(), pending); err != nil {
			flushErr = fmt.Errorf("failed to flush %d cache entries: %w", len(pending), err)
		} else {
			b.logger.Info("Cache flushed", zap.Int("entries", len(pending)))
		}
	}
	if err := b.store.Close(); err != nil && flushErr == nil {
		return err
	}
	return flushErr
}
