package tasks

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no task has the given id.
var ErrNotFound = errors.New("task not found")

// ValidationError reports input rejected before any backend access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError reports a failed backend read or write.
type PersistenceError struct {
	Op     string
	TaskID string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("task %s %s: %v", e.Op, e.TaskID, e.Err)
	}
	return fmt.Sprintf("task %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
