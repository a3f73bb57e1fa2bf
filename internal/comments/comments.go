// Package comments implements the append-only discussion thread attached
// to each task.
package comments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Author is the fixed author recorded for comments appended locally.
const Author = "나"

// Comment is one entry in a task's thread.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Backend persists comments.
type Backend interface {
	// ListComments returns the task's comments, oldest first.
	ListComments(ctx context.Context, taskID string) ([]Comment, error)
	// InsertComment stores c and returns it with ID and CreatedAt assigned.
	InsertComment(ctx context.Context, c Comment) (Comment, error)
}

// ValidationError reports input rejected before any backend access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Thread reads and appends comments.
type Thread struct {
	backend Backend
	logger  *zap.Logger
}

// NewThread creates a Thread over backend.
func NewThread(backend Backend, logger *zap.Logger) *Thread {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Thread{backend: backend, logger: logger}
}

// Fetch returns the thread for taskID in creation order. Lookup failures
// are logged and yield an empty thread.
func (t *Thread) Fetch(ctx context.Context, taskID string) []Comment {
	list, err := t.backend.ListComments(ctx, taskID)
	if err != nil {
		t.logger.Warn("fetching comments failed", zap.String("task_id", taskID), zap.Error(err))
		return []Comment{}
	}
	if list == nil {
		return []Comment{}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// Append adds a comment authored by Author. Content is trimmed and must
// not be empty. Backend failures are returned as is.
func (t *Thread) Append(ctx context.Context, taskID, content string) (Comment, error) {
	if strings.TrimSpace(taskID) == "" {
		return Comment{}, &ValidationError{Field: "task_id", Reason: "must not be empty"}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, &ValidationError{Field: "content", Reason: "must not be empty"}
	}

	c, err := t.backend.InsertComment(ctx, Comment{TaskID: taskID, Author: Author, Content: content})
	if err != nil {
		t.logger.Error("appending comment failed", zap.String("task_id", taskID), zap.Error(err))
		return Comment{}, fmt.Errorf("appending comment: %w", err)
	}
	return c, nil
}
