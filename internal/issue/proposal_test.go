package issue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProposal_Window(t *testing.T) {
	lines := numbered(10)
	is := mustIssue(t, Spec{Tool: "lint", File: "a.go", Line: 4}, lines)

	p, err := NewProposal(is, lines, 2, 6)
	require.NoError(t, err)

	assert.Equal(t, 2, p.SafetyRadius())
	assert.Equal(t, 2, p.AnchorOffset())
	assert.Equal(t, []string{"2", "3", "4 // ISSUE(lint)", "5", "6"}, p.IssueLines())
	assert.Equal(t, p.IssueLines(), p.ProposedLines())
	assert.Equal(t, []string{"2", "3", "4", "5", "6"}, p.OriginalLines())
	assert.False(t, p.Changed())
}

func TestNewProposal_CopiesLines(t *testing.T) {
	lines := numbered(5)
	is := mustIssue(t, Spec{Tool: "lint", File: "a.go", Line: 3}, lines)
	p, err := NewProposal(is, lines, 2, 4)
	require.NoError(t, err)

	lines[2] = "mutated"
	assert.Equal(t, "3", p.OriginalLines()[1])
}

func TestNewProposal_SafetyRadiusIsMinimum(t *testing.T) {
	lines := numbered(10)
	is := mustIssue(t, Spec{Tool: "lint", File: "a.go", Line: 3}, lines)
	p, err := NewProposal(is, lines, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, p.SafetyRadius())
}

func TestNewProposal_InvalidWindow(t *testing.T) {
	lines := numbered(10)
	is := mustIssue(t, Spec{Tool: "lint", File: "a.go", Line: 4}, lines)

	for _, w := range [][2]int{{0, 5}, {5, 6}, {1, 3}, {2, 11}} {
		_, err := NewProposal(is, lines, w[0], w[1])
		assert.True(t, errors.Is(err, ErrInvalidWindow), "window %v", w)
	}
}

func TestNewProposal_FileShrank(t *testing.T) {
	is := mustIssue(t, Spec{Tool: "lint", File: "a.go", Line: 8}, numbered(10))
	_, err := NewProposal(is, numbered(5), 1, 5)
	assert.True(t, errors.Is(err, ErrLineOutOfRange))
}

func TestProposal_AcceptAndResult(t *testing.T) {
	lines := numbered(6)
	is := mustIssue(t, Spec{Tool: "lint", File: "a.go", Line: 3}, lines)
	p, err := NewProposal(is, lines, 2, 4)
	require.NoError(t, err)

	p.Accept([]string{"2", "three", "3b", "4"})
	assert.True(t, p.Changed())
	assert.Equal(t, "2\nthree\n3b\n4", p.Replacement())
	assert.Equal(t, []string{"1", "2", "three", "3b", "4", "5", "6"}, p.Result())

	before, after := p.Context(1)
	assert.Equal(t, []string{"1"}, before)
	assert.Equal(t, []string{"5"}, after)
}

func TestProposal_MarkerOnlyIsNotAChange(t *testing.T) {
	lines := numbered(5)
	is := mustIssue(t, Spec{Tool: "lint", File: "a.go", Line: 3}, lines)
	p, err := NewProposal(is, lines, 2, 4)
	require.NoError(t, err)

	p.Accept(p.IssueLines())
	assert.False(t, p.Changed())
}

func TestProposal_FreshDropsMergeResult(t *testing.T) {
	lines := numbered(6)
	is := mustIssue(t, Spec{Tool: "lint", File: "a.go", Line: 3}, lines)
	p, err := NewProposal(is, lines, 2, 4)
	require.NoError(t, err)

	p.Accept([]string{"2", "three", "4"})
	q := p.Fresh()

	assert.Equal(t, p.IssueLines(), q.ProposedLines())
	assert.False(t, q.Changed())
	assert.Equal(t, p.Start(), q.Start())
	assert.Equal(t, p.End(), q.End())

	q.Accept([]string{"2", "tres", "4"})
	assert.Equal(t, []string{"2", "three", "4"}, p.ProposedLines(), "copies do not share merge results")
}
