package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

const taskColumns = `id, title, status, assignee, date, description, items, progress, priority, created_at`

// ListTasks returns every task, newest first.
func (db *DB) ListTasks(ctx context.Context) ([]tasks.Task, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []tasks.Task
	for rows.Next() {
		var (
			t                tasks.Task
			items, createdAt string
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &t.Assignee, &t.Date, &t.Description,
			&items, &t.Progress, &t.Priority, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &t.Items); err != nil {
			return nil, fmt.Errorf("task %s: invalid items: %w", t.ID, err)
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("task %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertTask stores t under a new UUID.
func (db *DB) InsertTask(ctx context.Context, t tasks.Task) (tasks.Task, error) {
	if t.Items == nil {
		t.Items = []tasks.ChecklistItem{}
	}
	items, err := json.Marshal(t.Items)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("failed to encode items: %w", err)
	}

	t.ID = uuid.NewString()
	createdAt := db.timestamp()
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return tasks.Task{}, err
	}

	_, err = db.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Status, t.Assignee, t.Date, t.Description, string(items), t.Progress, t.Priority, createdAt)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("failed to insert task: %w", err)
	}
	return t, nil
}

// PatchTask updates only the columns set in p.
func (db *DB) PatchTask(ctx context.Context, id string, p tasks.Patch) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Status != nil {
		set("status", *p.Status)
	}
	if p.Assignee != nil {
		set("assignee", *p.Assignee)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Date != nil {
		set("date", *p.Date)
	}
	if p.Priority != nil {
		set("priority", *p.Priority)
	}
	if p.Items != nil {
		items, err := json.Marshal(p.Items)
		if err != nil {
			return fmt.Errorf("failed to encode items: %w", err)
		}
		set("items", string(items))
	}
	if p.Progress != nil {
		set("progress", *p.Progress)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	res, err := db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return expectRow(res, id)
}

// DeleteTask removes the task. Its comments are kept.
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return expectRow(res, id)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectRow(res rowsAffected, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, tasks.ErrNotFound)
	}
	return nil
}
