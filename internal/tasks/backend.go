package tasks

import "context"

// Backend is the persistent task store.
type Backend interface {
	// ListTasks returns every task, newest first.
	ListTasks(ctx context.Context) ([]Task, error)
	// InsertTask stores t and returns it with ID and CreatedAt assigned.
	InsertTask(ctx context.Context, t Task) (Task, error)
	// PatchTask merges p into the row keyed by id.
	PatchTask(ctx context.Context, id string, p Patch) error
	// DeleteTask removes the row, returning ErrNotFound when absent.
	DeleteTask(ctx context.Context, id string) error
}
