package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codemend/internal/backend"
	"codemend/internal/issue"
	"codemend/internal/tactile"
)

type fakeExecutor struct {
	got    tactile.Command
	result *tactile.ExecutionResult
	err    error
}

func (f *fakeExecutor) Execute(_ context.Context, cmd tactile.Command) (*tactile.ExecutionResult, error) {
	f.got = cmd
	return f.result, f.err
}

func (f *fakeExecutor) Validate(tactile.Command) error { return nil }

func request(t *testing.T) backend.Request {
	t.Helper()
	is, err := issue.NewFromLines(issue.Spec{Tool: "ruff", File: "m.py", Line: 1, Description: "E501"}, []string{"x"})
	require.NoError(t, err)
	return backend.Request{Text: "prompt", Issue: is}
}

func TestQuery_PipesPromptAndReturnsStdout(t *testing.T) {
	exec := &fakeExecutor{result: &tactile.ExecutionResult{ExitCode: 0, Stdout: "x = 2\n"}}
	b := New("", tactile.Command{Binary: "fixer", Arguments: []string{"--stdin"}, Environment: []string{"A=1"}}, exec, nil)

	assert.Equal(t, []string{"x = 2\n"}, b.Query(context.Background(), request(t)))
	assert.Equal(t, "fixer", b.Name())
	assert.Equal(t, "prompt", exec.got.Stdin)
	assert.Contains(t, exec.got.Environment, "A=1")
	assert.Contains(t, exec.got.Environment, "MEND_TOOL=ruff")
	assert.Contains(t, exec.got.Environment, "MEND_LANGUAGE=python")
}

func TestQuery_Failures(t *testing.T) {
	tests := []struct {
		name string
		exec *fakeExecutor
	}{
		{"start error", &fakeExecutor{err: errors.New("not found")}},
		{"non-zero exit", &fakeExecutor{result: &tactile.ExecutionResult{ExitCode: 1, Stdout: "x"}}},
		{"killed", &fakeExecutor{result: &tactile.ExecutionResult{ExitCode: -1, Killed: true}}},
		{"blank output", &fakeExecutor{result: &tactile.ExecutionResult{Stdout: "\n\n"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("cmd", tactile.Command{Binary: "fixer"}, tt.exec, nil)
			assert.Empty(t, b.Query(context.Background(), request(t)))
		})
	}
}
