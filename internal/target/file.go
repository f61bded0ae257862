package target

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"go.uber.org/zap"

	"codemend/internal/issue"
	"codemend/internal/logging"
)

// snapshot is the byte-exact content of a file before Apply.
type snapshot struct {
	path string
	data []byte
	mode fs.FileMode
}

// FileTarget rewrites files in place.
type FileTarget struct {
	pending *issue.Proposal
	before  *snapshot
	logger  *zap.Logger
}

// NewFileTarget creates a filesystem target.
func NewFileTarget(logger *zap.Logger) *FileTarget {
	return &FileTarget{logger: logging.For(logger, logging.CategoryTarget)}
}

func (t *FileTarget) Name() string             { return "file" }
func (t *FileTarget) RequiresRefresh() bool    { return true }
func (t *FileTarget) Pending() *issue.Proposal { return t.pending }

// Apply replaces the proposal window in its file. Lines outside the window
// keep their exact bytes, terminators included.
func (t *FileTarget) Apply(_ context.Context, p *issue.Proposal) error {
	if t.pending != nil {
		return ErrAlreadyApplied
	}
	path := p.Issue().Path()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	out, err := replaceWindow(data, p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	t.pending = p
	t.before = &snapshot{path: path, data: data, mode: info.Mode()}
	t.logger.Debug("Applied proposal", zap.String("proposal", p.String()))
	return nil
}

// Revert writes the snapshot back.
func (t *FileTarget) Revert(context.Context) error {
	if t.pending == nil {
		return ErrNotApplied
	}
	s := t.before
	if err := os.WriteFile(s.path, s.data, s.mode.Perm()); err != nil {
		return fmt.Errorf("failed to restore %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, s.mode); err != nil {
		return fmt.Errorf("failed to restore mode of %s: %w", s.path, err)
	}
	t.logger.Debug("Reverted proposal", zap.String("proposal", t.pending.String()))
	t.clear()
	return nil
}

// Commit keeps the written file.
func (t *FileTarget) Commit(context.Context) bool {
	if t.pending == nil {
		t.logger.Error("Commit called on idle target")
		return false
	}
	t.clear()
	return true
}

func (t *FileTarget) clear() {
	t.pending = nil
	t.before = nil
}

// segment is one line with its original terminator.
type segment struct {
	text string
	term string
}

func splitSegments(data []byte) []segment {
	var segs []segment
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			segs = append(segs, segment{text: string(data)})
			break
		}
		line, term := data[:i], "\n"
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line, term = line[:len(line)-1], "\r\n"
		}
		segs = append(segs, segment{text: string(line), term: term})
		data = data[i+1:]
	}
	return segs
}

// replaceWindow rebuilds the file with the window swapped for the proposed
// lines. Replaced lines use the window's own terminator and the last one
// keeps the terminator of the window's last line, so a missing final
// newline stays missing.
func replaceWindow(data []byte, p *issue.Proposal) ([]byte, error) {
	segs := splitSegments(data)
	start, end := p.Start(), p.End()
	if end > len(segs) {
		return nil, fmt.Errorf("%w: %s has %d lines, window ends at %d", ErrStale, p.Issue().File(), len(segs), end)
	}
	window := make([]string, 0, end-start+1)
	for _, s := range segs[start-1 : end] {
		window = append(window, s.text)
	}
	if !slices.Equal(window, p.OriginalLines()) {
		return nil, fmt.Errorf("%w: %s lines %d-%d", ErrStale, p.Issue().File(), start, end)
	}

	term := lineTerminator(segs, start-1)
	lastTerm := segs[end-1].term

	var buf bytes.Buffer
	buf.Grow(len(data) + 64)
	for _, s := range segs[:start-1] {
		buf.WriteString(s.text + s.term)
	}
	proposed := p.ProposedLines()
	for i, l := range proposed {
		buf.WriteString(l)
		if i == len(proposed)-1 {
			buf.WriteString(lastTerm)
		} else {
			buf.WriteString(term)
		}
	}
	for _, s := range segs[end:] {
		buf.WriteString(s.text + s.term)
	}
	return buf.Bytes(), nil
}

// lineTerminator picks the terminator of segs[i], falling back to the first
// terminated line in the file and then "\n".
func lineTerminator(segs []segment, i int) string {
	if segs[i].term != "" {
		return segs[i].term
	}
	for _, s := range segs {
		if s.term != "" {
			return s.term
		}
	}
	return "\n"
}
