package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/minutes/internal/comments"
)

// ListComments returns the task's comments, oldest first.
func (db *DB) ListComments(ctx context.Context, taskID string) ([]comments.Comment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, task_id, author, content, created_at FROM comments WHERE task_id = ? ORDER BY created_at ASC, rowid ASC`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var out []comments.Comment
	for rows.Next() {
		var (
			c         comments.Comment
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Author, &c.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("comment %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertComment stores c under a new UUID.
func (db *DB) InsertComment(ctx context.Context, c comments.Comment) (comments.Comment, error) {
	c.ID = uuid.NewString()
	createdAt := db.timestamp()
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return comments.Comment{}, err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO comments (id, task_id, author, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.TaskID, c.Author, c.Content, createdAt)
	if err != nil {
		return comments.Comment{}, fmt.Errorf("failed to insert comment: %w", err)
	}
	return c, nil
}
