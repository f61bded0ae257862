// Package tactile runs external commands: linters, compilers, validity
// tests, git and command backends. Every subprocess codemend starts goes
// through an Executor so callers get one result shape and tests can fake it.
package tactile

import (
	"strings"
	"time"
)

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "go", "git", "ruff").
	Binary string `yaml:"command" json:"command"`

	// Arguments are the command-line arguments.
	Arguments []string `yaml:"args,omitempty" json:"args,omitempty"`

	// WorkingDirectory is the directory to execute in.
	// If empty, uses the executor's default working directory.
	WorkingDirectory string `yaml:"working_dir,omitempty" json:"working_dir,omitempty"`

	// Environment variables to add (in KEY=VALUE format).
	Environment []string `yaml:"env,omitempty" json:"env,omitempty"`

	// Stdin provides input to the command's standard input.
	Stdin string `yaml:"-" json:"-"`

	// Timeout bounds the run. Zero lets the command run to completion.
	Timeout time.Duration `yaml:"-" json:"-"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ExecutionResult contains the outcome of running a command.
type ExecutionResult struct {
	// ExitCode is the process exit code; -1 when the process was killed.
	ExitCode int

	Stdout   string
	Stderr   string
	Combined string // stdout followed by stderr

	StartedAt time.Time
	Duration  time.Duration

	// Killed is set when the timeout or the context stopped the process.
	Killed     bool
	KillReason string

	// Truncated is set when output exceeded the executor's limit.
	Truncated      bool
	TruncatedBytes int64
}

// Passed reports a zero exit status from a process that ran to completion.
func (r *ExecutionResult) Passed() bool {
	return r != nil && !r.Killed && r.ExitCode == 0
}

// ExecutorConfig holds executor defaults.
type ExecutorConfig struct {
	// WorkingDirectory is used when a command does not set one.
	WorkingDirectory string

	// MaxOutputBytes caps captured stdout and stderr separately.
	MaxOutputBytes int64

	// AllowedEnvironment restricts inherited variables to these names.
	// Empty inherits the whole environment.
	AllowedEnvironment []string
}

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxOutputBytes: 16 * 1024 * 1024,
	}
}

// Merge fills unset command fields from the config.
func (c ExecutorConfig) Merge(cmd Command) Command {
	if cmd.WorkingDirectory == "" {
		cmd.WorkingDirectory = c.WorkingDirectory
	}
	return cmd
}
