package issue

import (
	"fmt"
	"iter"
)

// Variant computes one proposal window for an issue. ok is false when the
// variant does not apply, for example a block variant on a language without
// a grammar.
type Variant interface {
	Name() string
	Window(is *Issue, lines []string) (start, end int, ok bool)
}

// RadiusVariant takes Radius lines on each side of the anchor, clipped to
// the file.
type RadiusVariant struct {
	Radius int
}

func (v RadiusVariant) Name() string { return fmt.Sprintf("radius-%d", v.Radius) }

func (v RadiusVariant) Window(is *Issue, lines []string) (int, int, bool) {
	if v.Radius < 0 || is.Line() > len(lines) {
		return 0, 0, false
	}
	return max(1, is.Line()-v.Radius), min(len(lines), is.Line()+v.Radius), true
}

// RangeVariant is an explicit 1-based inclusive range. It applies only when
// the range contains the anchor and fits the file.
type RangeVariant struct {
	Start, End int
}

func (v RangeVariant) Name() string { return fmt.Sprintf("range-%d-%d", v.Start, v.End) }

func (v RangeVariant) Window(is *Issue, lines []string) (int, int, bool) {
	if v.Start < 1 || v.End > len(lines) || v.Start > is.Line() || is.Line() > v.End {
		return 0, 0, false
	}
	return v.Start, v.End, true
}

// BlockFinder locates the smallest structural block enclosing a line.
type BlockFinder interface {
	EnclosingBlock(language string, lines []string, line int) (start, end int, ok bool)
}

// BlockVariant uses the smallest enclosing block (function, method, class)
// as the window.
type BlockVariant struct {
	Finder BlockFinder
}

func (v BlockVariant) Name() string { return "block" }

func (v BlockVariant) Window(is *Issue, lines []string) (int, int, bool) {
	if v.Finder == nil {
		return 0, 0, false
	}
	return v.Finder.EnclosingBlock(is.Language(), lines, is.Line())
}

// DefaultVariants is the try order used when nothing is configured: narrow
// windows first, the enclosing block, then a wide window.
func DefaultVariants(finder BlockFinder) []Variant {
	return []Variant{
		RadiusVariant{Radius: 3},
		RadiusVariant{Radius: 6},
		BlockVariant{Finder: finder},
		RadiusVariant{Radius: 12},
	}
}

// Proposals lazily yields one fresh Proposal per applicable variant, in
// order. Variants producing a window already yielded are skipped. A
// construction error is yielded once and ends the sequence.
func (is *Issue) Proposals(lines []string, variants []Variant) iter.Seq2[*Proposal, error] {
	return func(yield func(*Proposal, error) bool) {
		seen := make(map[[2]int]bool)
		for _, v := range variants {
			start, end, ok := v.Window(is, lines)
			if !ok {
				continue
			}
			key := [2]int{start, end}
			if seen[key] {
				continue
			}
			seen[key] = true

			p, err := NewProposal(is, lines, start, end)
			if err != nil {
				yield(nil, err)
				return
			}
			p.variant = v.Name()
			if !yield(p, nil) {
				return
			}
		}
	}
}
