package tactile

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestDirectExecutor_ExitCodes(t *testing.T) {
	skipOnWindows(t)
	e := NewDirectExecutor(DefaultExecutorConfig(), nil)

	t.Run("zero", func(t *testing.T) {
		res, err := e.Execute(context.Background(), Command{Binary: "sh", Arguments: []string{"-c", "echo out; echo err >&2"}})
		require.NoError(t, err)
		assert.True(t, res.Passed())
		assert.Equal(t, "out\n", res.Stdout)
		assert.Equal(t, "err\n", res.Stderr)
		assert.Equal(t, "out\n\nerr\n", res.Combined)
	})

	t.Run("non-zero is not an error", func(t *testing.T) {
		res, err := e.Execute(context.Background(), Command{Binary: "sh", Arguments: []string{"-c", "exit 3"}})
		require.NoError(t, err)
		assert.False(t, res.Passed())
		assert.Equal(t, 3, res.ExitCode)
	})
}

func TestDirectExecutor_Stdin(t *testing.T) {
	skipOnWindows(t)
	e := NewDirectExecutor(DefaultExecutorConfig(), nil)
	res, err := e.Execute(context.Background(), Command{Binary: "cat", Stdin: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Stdout)
}

func TestDirectExecutor_WorkingDirectoryDefault(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	e := NewDirectExecutor(ExecutorConfig{WorkingDirectory: dir}, nil)
	res, err := e.Execute(context.Background(), Command{Binary: "pwd"})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, dir)
}

func TestDirectExecutor_Timeout(t *testing.T) {
	skipOnWindows(t)
	e := NewDirectExecutor(DefaultExecutorConfig(), nil)
	res, err := e.Execute(context.Background(), Command{
		Binary:    "sleep",
		Arguments: []string{"5"},
		Timeout:   50 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, res.Killed)
	assert.False(t, res.Passed())
}

func TestDirectExecutor_MissingBinary(t *testing.T) {
	e := NewDirectExecutor(DefaultExecutorConfig(), nil)
	_, err := e.Execute(context.Background(), Command{Binary: "definitely-not-a-real-binary-xyz"})
	assert.Error(t, err)

	_, err = e.Execute(context.Background(), Command{Binary: " "})
	assert.True(t, errors.Is(err, ErrEmptyCommand))
}

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, max: 4}

	n, err := lw.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = lw.Write([]byte("def"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abcd", buf.String())
	assert.True(t, lw.truncated)
	assert.Equal(t, int64(2), lw.discarded)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "go", Command{Binary: "go"}.CommandString())
	assert.Equal(t, "go vet ./...", Command{Binary: "go", Arguments: []string{"vet", "./..."}}.CommandString())
}
