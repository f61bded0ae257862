// Package diff computes line-level edit scripts using the sergi/go-diff library
// and renders them as unified diffs with sourcegraph/go-diff.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	godiff "github.com/sourcegraph/go-diff/diff"
)

// Kind is the type of a line operation.
type Kind int

const (
	Equal  Kind = iota // line present in both inputs
	Insert             // line only in the new input
	Delete             // line only in the old input
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	default:
		return "equal"
	}
}

// Op is one line of an edit script. Old and New are 0-based indexes into the
// old and new inputs; the side a line is absent from holds -1.
type Op struct {
	Kind Kind
	Text string
	Old  int
	New  int
}

// Engine wraps a diffmatchpatch instance tuned for source lines.
type Engine struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEngine creates a diff engine with the timeout disabled so that results
// are deterministic for a given input.
func NewEngine() *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{dmp: dmp}
}

// DefaultEngine is shared by the package-level helpers.
var DefaultEngine = NewEngine()

// Lines computes a line-level edit script turning a into b.
//
// Every line is terminated before encoding so the last line of one side never
// differs from the same text on the other side just because it lacked a
// newline. No semantic cleanup is applied: callers rely on exact line
// equality to find sync points.
func (e *Engine) Lines(a, b []string) []Op {
	chars1, chars2, lineArray := e.dmp.DiffLinesToChars(joinTerminated(a), joinTerminated(b))
	diffs := e.dmp.DiffMain(chars1, chars2, false)
	diffs = e.dmp.DiffCharsToLines(diffs, lineArray)

	ops := make([]Op, 0, len(a)+len(b))
	oldIdx, newIdx := 0, 0
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, Op{Kind: Equal, Text: line, Old: oldIdx, New: newIdx})
				oldIdx++
				newIdx++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, Op{Kind: Delete, Text: line, Old: oldIdx, New: -1})
				oldIdx++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, Op{Kind: Insert, Text: line, Old: -1, New: newIdx})
				newIdx++
			}
		}
	}
	return ops
}

// Lines is a convenience function using the default engine.
func Lines(a, b []string) []Op {
	return DefaultEngine.Lines(a, b)
}

// HasChanges reports whether an edit script contains any insert or delete.
func HasChanges(ops []Op) bool {
	for _, op := range ops {
		if op.Kind != Equal {
			return true
		}
	}
	return false
}

func joinTerminated(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Hunks groups an edit script into unified-diff hunks with the given number
// of context lines. Changes closer than 2*context lines share a hunk.
func (e *Engine) Hunks(a, b []string, context int) []*godiff.Hunk {
	if context < 0 {
		context = 0
	}
	ops := e.Lines(a, b)

	var hunks []*godiff.Hunk
	i := 0
	for i < len(ops) {
		if ops[i].Kind == Equal {
			i++
			continue
		}
		start := max(0, i-context)
		last := i
		for j := i + 1; j < len(ops); j++ {
			if ops[j].Kind == Equal {
				continue
			}
			if j-last > 2*context {
				break
			}
			last = j
		}
		end := min(len(ops), last+context+1)
		hunks = append(hunks, buildHunk(ops, start, end))
		i = end
	}
	return hunks
}

func buildHunk(ops []Op, start, end int) *godiff.Hunk {
	var oldBefore, newBefore int32
	for _, op := range ops[:start] {
		if op.Kind != Insert {
			oldBefore++
		}
		if op.Kind != Delete {
			newBefore++
		}
	}

	h := &godiff.Hunk{}
	var body strings.Builder
	for _, op := range ops[start:end] {
		switch op.Kind {
		case Equal:
			body.WriteByte(' ')
			h.OrigLines++
			h.NewLines++
		case Delete:
			body.WriteByte('-')
			h.OrigLines++
		case Insert:
			body.WriteByte('+')
			h.NewLines++
		}
		body.WriteString(op.Text)
		body.WriteByte('\n')
	}
	h.Body = []byte(body.String())

	// An empty side points at the line before the change, per unified format.
	h.OrigStartLine = oldBefore + 1
	if h.OrigLines == 0 {
		h.OrigStartLine = oldBefore
	}
	h.NewStartLine = newBefore + 1
	if h.NewLines == 0 {
		h.NewStartLine = newBefore
	}
	return h
}

// Unified renders the change from a to b for path as a unified diff. An empty
// string is returned when the inputs are identical.
func (e *Engine) Unified(path string, a, b []string, context int) (string, error) {
	hunks := e.Hunks(a, b, context)
	if len(hunks) == 0 {
		return "", nil
	}
	out, err := godiff.PrintFileDiff(&godiff.FileDiff{
		OrigName: "a/" + path,
		NewName:  "b/" + path,
		Hunks:    hunks,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Unified is a convenience function using the default engine.
func Unified(path string, a, b []string, context int) (string, error) {
	return DefaultEngine.Unified(path, a, b, context)
}
