package tactile

import (
	"context"
	"errors"
)

// ErrEmptyCommand is returned by Validate for a command without a binary.
var ErrEmptyCommand = errors.New("binary is required")

// Executor runs commands. A non-zero exit is reported in the result, not as
// an error; errors mean the command could not be started at all.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)
	Validate(cmd Command) error
}
