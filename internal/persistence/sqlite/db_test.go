package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/minutes/internal/comments"
	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

var (
	_ tasks.Backend    = (*DB)(nil)
	_ comments.Backend = (*DB)(nil)
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// tick makes db.now advance one second per call.
func tick(db *DB, start time.Time) {
	cur := start
	db.now = func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "minutes.db")
	db, err := Open(context.Background(), path)
	require.NoError(t, err)

	_, err = db.InsertTask(context.Background(), tasks.Task{Title: "x"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer reopened.Close()
	list, err := reopened.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTasks_InsertAndList(t *testing.T) {
	db := openTestDB(t)
	tick(db, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := db.InsertTask(ctx, tasks.Task{
		Title:    "포털 개발",
		Status:   tasks.StatusNotStarted,
		Assignee: "민수",
		Date:     "2025-01-01",
		Items:    []tasks.ChecklistItem{{Text: "로그인"}, {Text: "배포", Checked: true}},
		Progress: 50,
		Priority: tasks.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Len(t, first.ID, 36)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := db.InsertTask(ctx, tasks.Task{Title: "예산", Status: tasks.StatusDone, Priority: tasks.PriorityLow})
	require.NoError(t, err)

	list, err := db.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first, list[1])
	assert.Equal(t, []tasks.ChecklistItem{}, list[0].Items)
}

func TestTasks_ListTieBreaksByInsertion(t *testing.T) {
	db := openTestDB(t)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return fixed }
	ctx := context.Background()

	a, err := db.InsertTask(ctx, tasks.Task{Title: "a"})
	require.NoError(t, err)
	b, err := db.InsertTask(ctx, tasks.Task{Title: "b"})
	require.NoError(t, err)

	list, err := db.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, []string{list[0].ID, list[1].ID})
}

func TestTasks_Patch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	task, err := db.InsertTask(ctx, tasks.Task{
		Title: "t", Status: tasks.StatusNotStarted, Assignee: "a", Priority: tasks.PriorityNormal,
		Items: []tasks.ChecklistItem{{Text: "x"}, {Text: "y"}},
	})
	require.NoError(t, err)

	status := tasks.StatusInProgress
	progress := 50
	require.NoError(t, db.PatchTask(ctx, task.ID, tasks.Patch{
		Status:   &status,
		Items:    []tasks.ChecklistItem{{Text: "x", Checked: true}, {Text: "y"}},
		Progress: &progress,
	}))

	list, err := db.ListTasks(ctx)
	require.NoError(t, err)
	got := list[0]
	assert.Equal(t, tasks.StatusInProgress, got.Status)
	assert.Equal(t, "a", got.Assignee, "unset fields untouched")
	assert.Equal(t, 50, got.Progress)
	assert.True(t, got.Items[0].Checked)

	assert.NoError(t, db.PatchTask(ctx, task.ID, tasks.Patch{}), "empty patch is a no-op")
	assert.ErrorIs(t, db.PatchTask(ctx, "missing", tasks.Patch{Status: &status}), tasks.ErrNotFound)
}

func TestTasks_Delete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	task, err := db.InsertTask(ctx, tasks.Task{Title: "t"})
	require.NoError(t, err)
	_, err = db.InsertComment(ctx, comments.Comment{TaskID: task.ID, Author: comments.Author, Content: "hi"})
	require.NoError(t, err)

	require.NoError(t, db.DeleteTask(ctx, task.ID))
	assert.ErrorIs(t, db.DeleteTask(ctx, task.ID), tasks.ErrNotFound)

	list, err := db.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	kept, err := db.ListComments(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1, "comments do not belong to the task row")
}

func TestComments_OrderedAscending(t *testing.T) {
	db := openTestDB(t)
	tick(db, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := db.InsertComment(ctx, comments.Comment{TaskID: "t1", Author: comments.Author, Content: text})
		require.NoError(t, err)
	}
	_, err := db.InsertComment(ctx, comments.Comment{TaskID: "t2", Author: comments.Author, Content: "other"})
	require.NoError(t, err)

	list, err := db.ListComments(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{list[0].Content, list[1].Content, list[2].Content})
	assert.True(t, list[0].CreatedAt.Before(list[1].CreatedAt))
}

func TestDrafts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, ok, err := db.GetDraft(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.PutDraft(ctx, "k", "v1"))
	require.NoError(t, db.PutDraft(ctx, "k", "v2"))
	v, ok, err := db.GetDraft(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, db.DeleteDraft(ctx, "k"))
	require.NoError(t, db.DeleteDraft(ctx, "k"))
	_, ok, err = db.GetDraft(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
