// Package merge reconciles backend answers with the original proposal window.
//
// Backends echo part of the surrounding context, reformat it, or invent
// lines around the real fix. The merger finds sync points where the answer
// and the original agree verbatim, keeps the original outside them and takes
// the answer between them. An answer whose sync point lies further from a
// window edge than the proposal's safety radius is rejected.
package merge

import (
	"slices"

	"go.uber.org/zap"

	"codemend/internal/diff"
	"codemend/internal/issue"
	"codemend/internal/logging"
)

// Path names the reconciliation strategy that produced a result.
type Path string

const (
	PathAnchor   Path = "anchor"
	PathBothEnds Path = "both-ends"
)

// Input is everything Reconcile needs. Window is the proposal's issue lines.
// StripMarker removes the anchor marker from a line and reports whether it
// was there; it is applied to Window[AnchorOffset] and used to find the
// anchor in the candidate.
type Input struct {
	Window       []string
	AnchorOffset int
	Radius       int
	Candidate    []string
	StripMarker  func(string) (string, bool)
}

// Result describes a successful reconciliation.
type Result struct {
	Lines       []string
	Path        Path
	TopDrift    int // original lines between the top edge and the top sync point
	BottomDrift int // original lines between the bottom sync point and the bottom edge
}

// Merger applies Reconcile to proposals.
type Merger struct {
	engine *diff.Engine
	logger *zap.Logger
}

// New creates a Merger logging under the merge category.
func New(logger *zap.Logger) *Merger {
	return &Merger{engine: diff.DefaultEngine, logger: logging.For(logger, logging.CategoryMerge)}
}

// Merge reconciles candidate with p and stores the outcome in p. It reports
// false when the candidate is unusable or changes nothing; p is left
// untouched in that case.
func (m *Merger) Merge(p *issue.Proposal, candidate string) bool {
	is := p.Issue()
	original := p.OriginalLines()

	lines := SplitCandidate(candidate)
	if len(lines) == 0 {
		m.logger.Debug("Empty candidate", zap.String("issue", is.Key()))
		return false
	}
	lines = issue.StrategyFor(is.Language()).Adjust(original, lines)

	res, ok := m.Reconcile(Input{
		Window:       p.IssueLines(),
		AnchorOffset: p.AnchorOffset(),
		Radius:       p.SafetyRadius(),
		Candidate:    lines,
		StripMarker:  is.StripMarker,
	})
	if !ok {
		m.logger.Debug("Candidate rejected",
			zap.String("issue", is.Key()),
			zap.Int("radius", p.SafetyRadius()))
		return false
	}
	if slices.Equal(res.Lines, original) {
		m.logger.Debug("Candidate changes nothing", zap.String("issue", is.Key()))
		return false
	}

	m.logger.Debug("Candidate merged",
		zap.String("issue", is.Key()),
		zap.String("path", string(res.Path)),
		zap.Int("top_drift", res.TopDrift),
		zap.Int("bottom_drift", res.BottomDrift))
	p.Accept(res.Lines)
	return true
}

// Reconcile merges in.Candidate into in.Window. The anchor path is used when
// the candidate still carries the anchor marker, otherwise both ends of the
// window are synced independently.
func (m *Merger) Reconcile(in Input) (Result, bool) {
	if len(in.Window) == 0 || len(in.Candidate) == 0 {
		return Result{}, false
	}

	orig := slices.Clone(in.Window)
	cand := slices.Clone(in.Candidate)
	strip := in.StripMarker
	if strip == nil {
		strip = func(s string) (string, bool) { return s, false }
	}
	if in.AnchorOffset >= 0 && in.AnchorOffset < len(orig) {
		orig[in.AnchorOffset], _ = strip(orig[in.AnchorOffset])
	}

	found := -1
	for i, l := range cand {
		if s, ok := strip(l); ok {
			cand[i] = s
			found = i
			break
		}
	}

	var res Result
	var ok bool
	if found >= 0 && in.AnchorOffset >= 0 && in.AnchorOffset < len(orig) {
		res, ok = m.anchorMerge(orig, in.AnchorOffset, cand, found)
	} else {
		res, ok = m.bothEndsMerge(orig, cand)
	}
	if !ok || res.TopDrift > in.Radius || res.BottomDrift > in.Radius {
		return Result{}, false
	}
	return res, true
}

// bothEndsMerge syncs on the first and last lines the two sides share.
func (m *Merger) bothEndsMerge(orig, cand []string) (Result, bool) {
	ops := m.engine.Lines(orig, cand)
	top, bottom := firstEqual(ops), lastEqual(ops)
	if top < 0 {
		return Result{}, false
	}
	t, b := ops[top], ops[bottom]

	lines := make([]string, 0, len(orig)+len(cand))
	lines = append(lines, orig[:t.Old]...)
	lines = append(lines, cand[t.New:b.New+1]...)
	lines = append(lines, orig[b.Old+1:]...)
	return Result{
		Lines:       lines,
		Path:        PathBothEnds,
		TopDrift:    t.Old,
		BottomDrift: len(orig) - 1 - b.Old,
	}, true
}

// anchorMerge splits both sides at the anchor line and syncs each half
// outward from it. A half whose only differences are missing or invented
// lines beyond its outermost shared line keeps the original.
func (m *Merger) anchorMerge(orig []string, a int, cand []string, f int) (Result, bool) {
	var res Result
	res.Path = PathAnchor

	above, drift, ok := m.mergeAbove(orig[:a], cand[:f])
	if !ok {
		return Result{}, false
	}
	res.TopDrift = drift

	below, drift, ok := m.mergeBelow(orig[a+1:], cand[f+1:])
	if !ok {
		return Result{}, false
	}
	res.BottomDrift = drift

	res.Lines = make([]string, 0, len(above)+1+len(below))
	res.Lines = append(res.Lines, above...)
	res.Lines = append(res.Lines, cand[f])
	res.Lines = append(res.Lines, below...)
	return res, true
}

func (m *Merger) mergeAbove(orig, cand []string) ([]string, int, bool) {
	if len(cand) == 0 || len(orig) == 0 {
		return orig, 0, true
	}
	ops := m.engine.Lines(orig, cand)
	e := firstEqual(ops)
	if e < 0 {
		return nil, 0, false
	}
	if !diff.HasChanges(ops[e:]) {
		return orig, 0, true
	}
	sync := ops[e]
	out := append(slices.Clone(orig[:sync.Old]), cand[sync.New:]...)
	return out, sync.Old, true
}

func (m *Merger) mergeBelow(orig, cand []string) ([]string, int, bool) {
	if len(cand) == 0 || len(orig) == 0 {
		return orig, 0, true
	}
	ops := m.engine.Lines(orig, cand)
	e := lastEqual(ops)
	if e < 0 {
		return nil, 0, false
	}
	if !diff.HasChanges(ops[:e+1]) {
		return orig, 0, true
	}
	sync := ops[e]
	out := append(slices.Clone(cand[:sync.New+1]), orig[sync.Old+1:]...)
	return out, len(orig) - 1 - sync.Old, true
}

func firstEqual(ops []diff.Op) int {
	for i, op := range ops {
		if op.Kind == diff.Equal {
			return i
		}
	}
	return -1
}

func lastEqual(ops []diff.Op) int {
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].Kind == diff.Equal {
			return i
		}
	}
	return -1
}
