package issue

import (
	"fmt"
	"slices"
	"strings"
)

// Proposal is one attempt at fixing an Issue: a window of original lines
// around the anchor and, after a successful merge, the replacement for it.
type Proposal struct {
	issue    *Issue
	variant  string
	allLines []string

	start, end   int // 1-based, inclusive
	safetyRadius int

	issueLines    []string
	proposedLines []string
}

// NewProposal cuts the window [start, end] out of allLines. The anchor line
// of the window is annotated with the issue's anchor marker.
func NewProposal(is *Issue, allLines []string, start, end int) (*Proposal, error) {
	anchor := is.Line()
	if anchor > len(allLines) {
		return nil, &RangeError{File: is.File(), Line: anchor, Count: len(allLines)}
	}
	if start < 1 || end > len(allLines) || start > anchor || anchor > end {
		return nil, fmt.Errorf("%w: %d..%d for anchor %d in %d lines",
			ErrInvalidWindow, start, end, anchor, len(allLines))
	}

	p := &Proposal{
		issue:        is,
		allLines:     slices.Clone(allLines),
		start:        start,
		end:          end,
		safetyRadius: min(anchor-start, end-anchor),
	}
	p.issueLines = slices.Clone(allLines[start-1 : end])
	p.issueLines[anchor-start] += is.AnchorMarker()
	p.proposedLines = slices.Clone(p.issueLines)
	return p, nil
}

func (p *Proposal) Issue() *Issue      { return p.issue }
func (p *Proposal) Start() int         { return p.start }
func (p *Proposal) End() int           { return p.end }
func (p *Proposal) SafetyRadius() int  { return p.safetyRadius }
func (p *Proposal) Variant() string    { return p.variant }
func (p *Proposal) AllLines() []string { return p.allLines }

// AnchorOffset is the index of the anchor line inside IssueLines.
func (p *Proposal) AnchorOffset() int { return p.issue.Line() - p.start }

// IssueLines is the window with the anchor marker applied.
func (p *Proposal) IssueLines() []string { return p.issueLines }

// ProposedLines is the accepted replacement, or a copy of IssueLines before
// any merge succeeded.
func (p *Proposal) ProposedLines() []string { return p.proposedLines }

// OriginalLines is the window exactly as it appears in the file.
func (p *Proposal) OriginalLines() []string {
	return p.allLines[p.start-1 : p.end]
}

// Accept stores the result of a successful merge.
func (p *Proposal) Accept(lines []string) {
	p.proposedLines = slices.Clone(lines)
}

// Fresh returns a copy of p with no merge result, ready for the next
// candidate answer. The window lines are shared and never modified.
func (p *Proposal) Fresh() *Proposal {
	q := *p
	q.proposedLines = slices.Clone(p.issueLines)
	return &q
}

// Changed reports whether the proposed lines differ from the window once the
// anchor marker is removed. A merge that changes nothing is not a fix.
func (p *Proposal) Changed() bool {
	proposed := slices.Clone(p.proposedLines)
	off := p.AnchorOffset()
	if off < len(proposed) {
		proposed[off], _ = p.issue.StripMarker(proposed[off])
	}
	return !slices.Equal(proposed, p.OriginalLines())
}

// Replacement joins the proposed lines with newlines.
func (p *Proposal) Replacement() string {
	return strings.Join(p.proposedLines, "\n")
}

// Result is the whole file with the window replaced by ProposedLines.
func (p *Proposal) Result() []string {
	out := make([]string, 0, len(p.allLines)-len(p.issueLines)+len(p.proposedLines))
	out = append(out, p.allLines[:p.start-1]...)
	out = append(out, p.proposedLines...)
	out = append(out, p.allLines[p.end:]...)
	return out
}

// Context returns up to n lines of file content on each side of the window.
func (p *Proposal) Context(n int) (before, after []string) {
	lo := max(0, p.start-1-n)
	hi := min(len(p.allLines), p.end+n)
	return p.allLines[lo : p.start-1], p.allLines[p.end:hi]
}

func (p *Proposal) String() string {
	return fmt.Sprintf("%s lines %d-%d (%s, radius %d)", p.issue.File(), p.start, p.end, p.variant, p.safetyRadius)
}
