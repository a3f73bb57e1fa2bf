package aztables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/minutes/internal/comments"
	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

var (
	_ tasks.Backend    = (*Storage)(nil)
	_ comments.Backend = (*Storage)(nil)
)

// memTable keeps entities in memory and answers PartitionKey filters.
type memTable struct {
	mu   sync.Mutex
	rows map[string]map[string]any
}

func newMemTable() *memTable {
	return &memTable{rows: map[string]map[string]any{}}
}

func rowID(pk, rk string) string { return pk + "\x00" + rk }

func (m *memTable) decode(entity []byte) (map[string]any, string, error) {
	var ent map[string]any
	if err := json.Unmarshal(entity, &ent); err != nil {
		return nil, "", err
	}
	pk, _ := ent["PartitionKey"].(string)
	rk, _ := ent["RowKey"].(string)
	return ent, rowID(pk, rk), nil
}

func (m *memTable) AddEntity(_ context.Context, entity []byte, _ *aztables.AddEntityOptions) (aztables.AddEntityResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ent, id, err := m.decode(entity)
	if err != nil {
		return aztables.AddEntityResponse{}, err
	}
	if _, ok := m.rows[id]; ok {
		return aztables.AddEntityResponse{}, errors.New("entity already exists")
	}
	m.rows[id] = ent
	return aztables.AddEntityResponse{}, nil
}

func (m *memTable) UpdateEntity(_ context.Context, entity []byte, opts *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ent, id, err := m.decode(entity)
	if err != nil {
		return aztables.UpdateEntityResponse{}, err
	}
	cur, ok := m.rows[id]
	if !ok {
		return aztables.UpdateEntityResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound}
	}
	if opts == nil || opts.UpdateMode != aztables.UpdateModeMerge {
		m.rows[id] = ent
		return aztables.UpdateEntityResponse{}, nil
	}
	for k, v := range ent {
		cur[k] = v
	}
	return aztables.UpdateEntityResponse{}, nil
}

func (m *memTable) DeleteEntity(_ context.Context, pk, rk string, _ *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := rowID(pk, rk)
	if _, ok := m.rows[id]; !ok {
		return aztables.DeleteEntityResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound}
	}
	delete(m.rows, id)
	return aztables.DeleteEntityResponse{}, nil
}

func (m *memTable) NewListEntitiesPager(opts *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse] {
	pk := ""
	if opts != nil && opts.Filter != nil {
		lit := strings.TrimPrefix(*opts.Filter, "PartitionKey eq ")
		pk = strings.ReplaceAll(strings.Trim(lit, "'"), "''", "'")
	}
	fetched := false
	return runtime.NewPager(runtime.PagingHandler[aztables.ListEntitiesResponse]{
		More: func(aztables.ListEntitiesResponse) bool { return !fetched },
		Fetcher: func(context.Context, *aztables.ListEntitiesResponse) (aztables.ListEntitiesResponse, error) {
			fetched = true
			m.mu.Lock()
			defer m.mu.Unlock()
			keys := make([]string, 0, len(m.rows))
			for id := range m.rows {
				if strings.HasPrefix(id, pk+"\x00") {
					keys = append(keys, id)
				}
			}
			sort.Strings(keys)
			var resp aztables.ListEntitiesResponse
			for _, id := range keys {
				b, err := json.Marshal(m.rows[id])
				if err != nil {
					return resp, err
				}
				resp.Entities = append(resp.Entities, b)
			}
			return resp, nil
		},
	})
}

func newTestStorage() (*Storage, *memTable, *memTable) {
	tt, ct := newMemTable(), newMemTable()
	s := newStorage(tt, ct)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%02d", n)
	}
	return s, tt, ct
}

func TestTasks_InsertAndList(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStorage()

	first, err := s.InsertTask(ctx, tasks.Task{
		Title:    "Draft budget",
		Status:   tasks.StatusNotStarted,
		Priority: tasks.PriorityHigh,
		Items:    []tasks.ChecklistItem{{Text: "collect quotes"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "id-01", first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := s.InsertTask(ctx, tasks.Task{Title: "Book venue", Status: tasks.StatusDone})
	require.NoError(t, err)

	list, err := s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, []tasks.ChecklistItem{{Text: "collect quotes"}}, list[1].Items)
	assert.Equal(t, []tasks.ChecklistItem{}, list[0].Items)
	assert.Equal(t, tasks.PriorityHigh, list[1].Priority)
	assert.True(t, first.CreatedAt.Equal(list[1].CreatedAt))
}

func TestTasks_PatchMerges(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStorage()

	created, err := s.InsertTask(ctx, tasks.Task{
		Title:    "Write minutes",
		Status:   tasks.StatusNotStarted,
		Assignee: "Kim",
		Items:    []tasks.ChecklistItem{{Text: "a"}, {Text: "b"}},
	})
	require.NoError(t, err)

	status := tasks.StatusInProgress
	progress := 50
	require.NoError(t, s.PatchTask(ctx, created.ID, tasks.Patch{
		Status:   &status,
		Items:    []tasks.ChecklistItem{{Text: "a", Checked: true}, {Text: "b"}},
		Progress: &progress,
	}))

	list, err := s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, tasks.StatusInProgress, got.Status)
	assert.Equal(t, "Kim", got.Assignee)
	assert.Equal(t, 50, got.Progress)
	assert.True(t, got.Items[0].Checked)
}

func TestTasks_MissingRows(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStorage()

	status := tasks.StatusDone
	err := s.PatchTask(ctx, "nope", tasks.Patch{Status: &status})
	assert.ErrorIs(t, err, tasks.ErrNotFound)

	err = s.DeleteTask(ctx, "nope")
	assert.ErrorIs(t, err, tasks.ErrNotFound)
}

func TestTasks_Delete(t *testing.T) {
	ctx := context.Background()
	s, tt, _ := newTestStorage()

	created, err := s.InsertTask(ctx, tasks.Task{Title: "x", Status: tasks.StatusNotStarted})
	require.NoError(t, err)
	require.NoError(t, s.DeleteTask(ctx, created.ID))
	assert.Empty(t, tt.rows)
}

func TestTasks_EmptyPatchIsNoop(t *testing.T) {
	s, _, _ := newTestStorage()
	assert.NoError(t, s.PatchTask(context.Background(), "missing", tasks.Patch{}))
}

func TestComments_OrderedByCreation(t *testing.T) {
	ctx := context.Background()
	s, _, ct := newTestStorage()

	_, err := s.InsertComment(ctx, comments.Comment{TaskID: "t1", Author: comments.Author, Content: "first"})
	require.NoError(t, err)
	_, err = s.InsertComment(ctx, comments.Comment{TaskID: "t2", Author: comments.Author, Content: "other"})
	require.NoError(t, err)
	_, err = s.InsertComment(ctx, comments.Comment{TaskID: "t1", Author: comments.Author, Content: "second"})
	require.NoError(t, err)
	assert.Len(t, ct.rows, 3)

	list, err := s.ListComments(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "second", list[1].Content)
	assert.Equal(t, "t1", list[1].TaskID)
	assert.Equal(t, comments.Author, list[0].Author)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'it''s'", quote("it's"))
}

func TestCommentRowKey_SortsByTime(t *testing.T) {
	a := commentRowKey(time.Unix(9, 0), "z")
	b := commentRowKey(time.Unix(10, 0), "a")
	assert.Less(t, a, b)
}
