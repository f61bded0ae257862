package source

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"codemend/internal/issue"
	"codemend/internal/tactile"
)

// Multi lists several sources as one. Tools run concurrently; the result
// keeps configuration order.
type Multi struct {
	sources []Source
}

// NewMulti combines sources.
func NewMulti(sources ...Source) *Multi {
	return &Multi{sources: sources}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.sources))
	for i, s := range m.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

// ValidityTest is the first validity test any source declares.
func (m *Multi) ValidityTest() *tactile.Command {
	for _, s := range m.sources {
		if cmd := s.ValidityTest(); cmd != nil {
			return cmd
		}
	}
	return nil
}

func (m *Multi) ListIssues(ctx context.Context) ([]*issue.Issue, error) {
	results := make([][]*issue.Issue, len(m.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range m.sources {
		g.Go(func() error {
			issues, err := s.ListIssues(gctx)
			if err != nil {
				return err
			}
			results[i] = issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*issue.Issue
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}
