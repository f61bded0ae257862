// Package backend defines the answer sources queried for fixes and the
// priority chain that orders them.
//
// A backend never fails a query: unavailability is logged and reported as
// an empty answer, which the resolution loop treats as "try the next one".
package backend

import (
	"context"

	"codemend/internal/issue"
)

// Request is what a backend is asked to answer.
type Request struct {
	// Text is the full prompt for text-generating backends.
	Text string
	// Issue being fixed.
	Issue *issue.Issue
	// Lines is the proposal window with the anchor marker applied.
	Lines []string
}

// Backend produces candidate replacement text for a request.
type Backend interface {
	Name() string

	// Query returns candidate answers in preference order. Empty means the
	// backend has no answer.
	Query(ctx context.Context, req Request) []string

	// ReportSuccessfulFix records that p fixed is and was committed.
	ReportSuccessfulFix(ctx context.Context, is *issue.Issue, p *issue.Proposal)

	// Modified reports whether the backend learned something this run that
	// Close has to persist.
	Modified() bool

	// Close flushes pending state and releases resources.
	Close() error
}

// Nop provides no-op ReportSuccessfulFix, Modified and Close for stateless
// backends.
type Nop struct{}

func (Nop) ReportSuccessfulFix(context.Context, *issue.Issue, *issue.Proposal) {}
func (Nop) Modified() bool                                                     { return false }
func (Nop) Close() error                                                       { return nil }
