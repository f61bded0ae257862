// Package issue models reported code problems and the proposal windows used
// to fix them.
//
// An Issue is immutable once built. Proposals are cut from the file as it is
// at the time of the attempt and are never reused across attempts.
package issue

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrLineOutOfRange is returned when an issue's anchor line lies outside
	// the file. The concrete error is a *RangeError.
	ErrLineOutOfRange = errors.New("anchor line out of range")

	// ErrInvalidWindow is returned when a proposal window does not contain
	// the anchor line or exceeds the file.
	ErrInvalidWindow = errors.New("invalid proposal window")
)

// RangeError reports an anchor line outside 1..Count.
type RangeError struct {
	File  string
	Line  int
	Count int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: line %d outside 1..%d", e.File, e.Line, e.Count)
}

func (e *RangeError) Unwrap() error { return ErrLineOutOfRange }

// Spec holds the fields an issue source knows about a finding.
type Spec struct {
	Tool        string
	Root        string // directory File is relative to; empty means the working directory
	File        string
	Line        int // 1-based
	Description string
	Type        string // warning, error, compilation, ...
	Language    string // inferred from File when empty
}

// Issue is one reported problem anchored at a single source line.
type Issue struct {
	tool         string
	root         string
	file         string
	line         int
	description  string
	issueType    string
	language     string
	commentToken string
	anchorMarker string
}

// New reads the file named by spec and builds an Issue, failing with a
// *RangeError when the anchor line is not inside the file.
func New(spec Spec) (*Issue, error) {
	lines, err := ReadLines(joinRoot(spec.Root, spec.File))
	if err != nil {
		return nil, err
	}
	return NewFromLines(spec, lines)
}

// NewFromLines builds an Issue against already loaded file lines.
func NewFromLines(spec Spec, lines []string) (*Issue, error) {
	if spec.Line < 1 || spec.Line > len(lines) {
		return nil, &RangeError{File: spec.File, Line: spec.Line, Count: len(lines)}
	}

	lang := spec.Language
	if lang == "" {
		lang = DetectLanguage(spec.File)
	}
	token := LookupLanguage(lang).CommentToken

	typ := spec.Type
	if typ == "" {
		typ = "warning"
	}

	is := &Issue{
		tool:         spec.Tool,
		root:         spec.Root,
		file:         spec.File,
		line:         spec.Line,
		description:  spec.Description,
		issueType:    typ,
		language:     lang,
		commentToken: token,
	}
	if token != "" {
		is.anchorMarker = " " + token + " ISSUE(" + spec.Tool + ")"
	}
	return is, nil
}

func (is *Issue) Tool() string         { return is.tool }
func (is *Issue) File() string         { return is.file }
func (is *Issue) Line() int            { return is.line }
func (is *Issue) Description() string  { return is.description }
func (is *Issue) Type() string         { return is.issueType }
func (is *Issue) Language() string     { return is.language }
func (is *Issue) CommentToken() string { return is.commentToken }

// AnchorMarker is appended to the anchor line sent to a backend so the
// merger can find it again. Empty when the language has no comment token.
func (is *Issue) AnchorMarker() string { return is.anchorMarker }

// Path is the file path joined with the source root.
func (is *Issue) Path() string { return joinRoot(is.root, is.file) }

// ReadLines loads the current content of the issue's file.
func (is *Issue) ReadLines() ([]string, error) {
	return ReadLines(is.Path())
}

// Key identifies the issue for logs and de-duplication.
func (is *Issue) Key() string {
	return fmt.Sprintf("%s:%d:%s:%s", is.file, is.line, is.tool, is.description)
}

// Identity is Key without the line number. It survives edits that shift
// the finding up or down the file.
func (is *Issue) Identity() string {
	return fmt.Sprintf("%s:%s:%s", is.file, is.tool, is.description)
}

func (is *Issue) String() string {
	return fmt.Sprintf("%s:%d: [%s] %s", is.file, is.line, is.tool, is.description)
}

// StripMarker removes the anchor marker from the end of line, ignoring
// trailing blanks the way backends tend to leave them. It reports whether
// the marker was present.
func (is *Issue) StripMarker(line string) (string, bool) {
	if is.anchorMarker == "" {
		return line, false
	}
	trimmed := strings.TrimRight(line, " \t")
	if !strings.HasSuffix(trimmed, is.anchorMarker) {
		return line, false
	}
	return strings.TrimSuffix(trimmed, is.anchorMarker), true
}

// ReadLines reads path and splits it into lines without terminators.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return SplitLines(data), nil
}

// SplitLines splits data on "\n", dropping "\r" terminators and the empty
// element after a final newline.
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	data = bytes.TrimSuffix(data, []byte("\n"))
	parts := strings.Split(string(data), "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

func joinRoot(root, file string) string {
	if root == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(root, file)
}
