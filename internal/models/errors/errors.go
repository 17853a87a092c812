package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInputRejected = errors.New("no code provided")
	ErrSpawnFailure  = errors.New("failed to start toolchain")
	ErrBusy          = errors.New("server is busy")
	ErrNotFound      = errors.New("not found")
)

// SpawnError reports a job whose toolchain process never started.
type SpawnError struct {
	JobID string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("job %s: %v: %v", e.JobID, ErrSpawnFailure, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawnFailure, e.Err}
}
