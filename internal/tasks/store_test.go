package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/minutes/internal/logging"
)

// fakeBackend is an in-memory Backend with injectable failures.
type fakeBackend struct {
	mu      sync.Mutex
	rows    map[string]Task
	patches []patchCall
	seq     int

	listErr   error
	insertErr error
	patchErr  error
	deleteErr error

	// gate, when set, blocks PatchTask until it is closed.
	gate chan struct{}
}

type patchCall struct {
	id    string
	patch Patch
}

func newFakeBackend(seed ...Task) *fakeBackend {
	b := &fakeBackend{rows: make(map[string]Task)}
	for _, t := range seed {
		b.rows[t.ID] = t
	}
	return b
}

func (b *fakeBackend) ListTasks(context.Context) ([]Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]Task, 0, len(b.rows))
	for _, t := range b.rows {
		out = append(out, t)
	}
	return out, nil
}

func (b *fakeBackend) InsertTask(_ context.Context, t Task) (Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.insertErr != nil {
		return Task{}, b.insertErr
	}
	b.seq++
	t.ID = fmt.Sprintf("task-%d", b.seq)
	t.CreatedAt = time.Date(2025, 1, 1, 0, 0, b.seq, 0, time.UTC)
	b.rows[t.ID] = t
	return t, nil
}

func (b *fakeBackend) PatchTask(_ context.Context, id string, p Patch) error {
	if b.gate != nil {
		<-b.gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.patches = append(b.patches, patchCall{id: id, patch: p})
	if b.patchErr != nil {
		return b.patchErr
	}
	t, ok := b.rows[id]
	if !ok {
		return ErrNotFound
	}
	p.Apply(&t)
	b.rows[id] = t
	return nil
}

func (b *fakeBackend) DeleteTask(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if _, ok := b.rows[id]; !ok {
		return ErrNotFound
	}
	delete(b.rows, id)
	return nil
}

func (b *fakeBackend) row(id string) Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rows[id]
}

func (b *fakeBackend) patchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.patches)
}

func seedTask(id string, created int, items ...ChecklistItem) Task {
	return Task{
		ID:        id,
		Title:     "task " + id,
		Status:    StatusNotStarted,
		Assignee:  "민수",
		Date:      "2025-01-01",
		Items:     items,
		Progress:  Progress(items),
		Priority:  PriorityNormal,
		CreatedAt: time.Date(2025, 1, 1, created, 0, 0, 0, time.UTC),
	}
}

func loadedStore(t *testing.T, b *fakeBackend, opts ...Option) *Store {
	t.Helper()
	s := NewStore(b, nil, opts...)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestStore_LoadOrdersNewestFirst(t *testing.T) {
	b := newFakeBackend(seedTask("a", 1), seedTask("c", 3), seedTask("b", 2))
	s := loadedStore(t, b)

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestStore_LoadFailureKeepsPrevious(t *testing.T) {
	b := newFakeBackend(seedTask("a", 1))
	tl := logging.NewTestLogger()
	s := NewStore(b, tl.Logger)
	require.NoError(t, s.Load(context.Background()))

	b.listErr = errors.New("connection refused")
	err := s.Load(context.Background())

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load", perr.Op)
	assert.Len(t, s.List(), 1)
	tl.AssertLogged(t, zapcore.ErrorLevel, "loading tasks failed")
}

func TestStore_ListReturnsCopies(t *testing.T) {
	b := newFakeBackend(seedTask("a", 1, ChecklistItem{Text: "x"}))
	s := loadedStore(t, b)

	list := s.List()
	list[0].Items[0].Checked = true
	list[0].Title = "mutated"

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.False(t, got.Items[0].Checked)
	assert.Equal(t, "task a", got.Title)
}

func TestStore_Create(t *testing.T) {
	b := newFakeBackend(seedTask("old", 1))
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	s := loadedStore(t, b, WithClock(func() time.Time { return now }))

	created, err := s.Create(context.Background(), NewTask{
		Title:    "  포털 개발  ",
		Priority: "높음",
		Items:    []ChecklistItem{{Text: "로그인"}, {Text: "배포", Checked: true}, {Text: "QA"}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "  포털 개발  ", created.Title, "title is stored as given")
	assert.Equal(t, StatusNotStarted, created.Status)
	assert.Equal(t, Unassigned, created.Assignee)
	assert.Equal(t, "2025-03-04", created.Date)
	assert.Equal(t, PriorityHigh, created.Priority)
	assert.Equal(t, 33, created.Progress)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID, "new task goes to the front")
}

func TestStore_CreateValidation(t *testing.T) {
	b := newFakeBackend()
	s := loadedStore(t, b)

	_, err := s.Create(context.Background(), NewTask{Title: "   "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)

	_, err = s.Create(context.Background(), NewTask{Title: "x", Status: "blocked"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
	assert.Empty(t, b.rows)
}

func TestStore_CreateFailureAddsNothing(t *testing.T) {
	b := newFakeBackend()
	b.insertErr = errors.New("quota")
	s := loadedStore(t, b)

	_, err := s.Create(context.Background(), NewTask{Title: "x"})
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, s.List())
}

func TestStore_UpdateIsOptimistic(t *testing.T) {
	b := newFakeBackend(seedTask("a", 1))
	b.gate = make(chan struct{})
	s := loadedStore(t, b)

	status := StatusInProgress
	desc := "new context"
	pending, err := s.Update(context.Background(), "a", Update{Status: &status, Description: &desc})
	require.NoError(t, err)

	got, _ := s.Get("a")
	assert.Equal(t, StatusInProgress, got.Status, "cache updated before backend confirms")
	assert.Equal(t, "new context", got.Description)
	assert.Nil(t, pending.Err())
	assert.Equal(t, StatusNotStarted, b.row("a").Status)

	close(b.gate)
	require.NoError(t, pending.Wait(context.Background()))
	assert.Equal(t, StatusInProgress, b.row("a").Status)

	require.Len(t, b.patches, 1)
	p := b.patches[0].patch
	assert.Nil(t, p.Items, "only edited fields are sent")
	assert.Nil(t, p.Progress)
	assert.Nil(t, p.Assignee)
}

func TestStore_UpdateValidation(t *testing.T) {
	b := newFakeBackend(seedTask("a", 1))
	s := loadedStore(t, b)

	bad := Status("blocked")
	_, err := s.Update(context.Background(), "a", Update{Status: &bad})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)

	_, err = s.Update(context.Background(), "a", Update{})
	require.ErrorAs(t, err, &verr)

	st := StatusDone
	_, err = s.Update(context.Background(), "missing", Update{Status: &st})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Wait(context.Background()))
	assert.Zero(t, b.patchCount())
}

func TestStore_UpdateNormalizesPriority(t *testing.T) {
	b := newFakeBackend(seedTask("a", 1))
	s := loadedStore(t, b)

	for label, want := range map[Priority]Priority{"낮음": PriorityLow, "urgent": PriorityNormal, "high": PriorityHigh} {
		p := label
		pending, err := s.Update(context.Background(), "a", Update{Priority: &p})
		require.NoError(t, err)
		require.NoError(t, pending.Wait(context.Background()))

		got, _ := s.Get("a")
		assert.Equal(t, want, got.Priority)
		assert.Equal(t, want, b.row("a").Priority)
	}
}

func TestStore_UpdateRejectionDoesNotRollBack(t *testing.T) {
	b := newFakeBackend(seedTask("a", 1))
	b.patchErr = errors.New("permission denied")

	rejected := make(chan string, 1)
	tl := logging.NewTestLogger()
	s := NewStore(b, tl.Logger, WithRejectionHook(func(id string, err error) { rejected <- id }))
	require.NoError(t, s.Load(context.Background()))

	status := StatusDone
	pending, err := s.Update(context.Background(), "a", Update{Status: &status})
	require.NoError(t, err)

	err = pending.Wait(context.Background())
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "a", perr.TaskID)
	assert.Equal(t, err, pending.Err())

	select {
	case id := <-rejected:
		assert.Equal(t, "a", id)
	case <-time.After(time.Second):
		t.Fatal("rejection hook not called")
	}

	got, _ := s.Get("a")
	assert.Equal(t, StatusDone, got.Status, "cache is not rolled back")
	assert.Equal(t, StatusNotStarted, b.row("a").Status)
	tl.AssertLogged(t, zapcore.ErrorLevel, "task write rejected")
}

func TestStore_ToggleItemIsolation(t *testing.T) {
	items := []ChecklistItem{{Text: "a"}, {Text: "b", Checked: true}, {Text: "c"}}
	b := newFakeBackend(seedTask("t", 1, items...))
	s := loadedStore(t, b)

	pending, err := s.ToggleItem(context.Background(), "t", 0)
	require.NoError(t, err)

	got, _ := s.Get("t")
	assert.Equal(t, []ChecklistItem{{Text: "a", Checked: true}, {Text: "b", Checked: true}, {Text: "c"}}, got.Items)
	assert.Equal(t, 67, got.Progress)

	require.NoError(t, pending.Wait(context.Background()))
	row := b.row("t")
	assert.Equal(t, got.Items, row.Items)
	assert.Equal(t, 67, row.Progress)

	require.Len(t, b.patches, 1)
	p := b.patches[0].patch
	assert.Len(t, p.Items, 3, "whole checklist persisted")
	require.NotNil(t, p.Progress)
	assert.Nil(t, p.Status)
}

func TestStore_ToggleItemOutOfRange(t *testing.T) {
	b := newFakeBackend(seedTask("t", 1, ChecklistItem{Text: "a"}))
	s := loadedStore(t, b)

	for _, idx := range []int{-1, 1, 5} {
		_, err := s.ToggleItem(context.Background(), "t", idx)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	}
	_, err := s.ToggleItem(context.Background(), "nope", 0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, b.patchCount())
}

func TestStore_RapidTogglesPersistInOrder(t *testing.T) {
	b := newFakeBackend(seedTask("t", 1, ChecklistItem{Text: "a"}, ChecklistItem{Text: "b"}))
	b.gate = make(chan struct{})
	s := loadedStore(t, b)

	var last *Pending
	for _, idx := range []int{0, 1, 0} {
		p, err := s.ToggleItem(context.Background(), "t", idx)
		require.NoError(t, err)
		last = p
	}
	close(b.gate)
	require.NoError(t, last.Wait(context.Background()))
	require.NoError(t, s.Wait(context.Background()))

	require.Len(t, b.patches, 3)
	assert.Equal(t, 50, *b.patches[0].patch.Progress)
	assert.Equal(t, 100, *b.patches[1].patch.Progress)
	assert.Equal(t, 50, *b.patches[2].patch.Progress)

	got, _ := s.Get("t")
	assert.Equal(t, got.Items, b.row("t").Items)
	assert.Equal(t, []ChecklistItem{{Text: "a"}, {Text: "b", Checked: true}}, got.Items)
}

func TestStore_Delete(t *testing.T) {
	b := newFakeBackend(seedTask("a", 1), seedTask("b", 2))
	s := loadedStore(t, b)

	require.NoError(t, s.Delete(context.Background(), "a"))
	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Len(t, s.List(), 1)

	assert.ErrorIs(t, s.Delete(context.Background(), "a"), ErrNotFound)
}

func TestStore_DeleteIsSuccessGated(t *testing.T) {
	b := newFakeBackend(seedTask("a", 1))
	b.deleteErr = errors.New("timeout")
	s := loadedStore(t, b)

	err := s.Delete(context.Background(), "a")
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)

	_, ok := s.Get("a")
	assert.True(t, ok, "failed delete keeps the cache entry")
}

func TestStore_DeleteWaitsForQueuedWrites(t *testing.T) {
	b := newFakeBackend(seedTask("a", 1, ChecklistItem{Text: "x"}))
	b.gate = make(chan struct{})
	s := loadedStore(t, b)

	_, err := s.ToggleItem(context.Background(), "a", 0)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Delete(context.Background(), "a") }()

	select {
	case <-done:
		t.Fatal("delete ran before queued write finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(b.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, b.patchCount())
}

func TestStore_Filter(t *testing.T) {
	a := seedTask("a", 1)
	a.Status = StatusDone
	c := seedTask("c", 3)
	c.Priority = PriorityHigh
	b := newFakeBackend(a, seedTask("b", 2), c)
	s := loadedStore(t, b)

	assert.Len(t, s.Filter(Filter{Status: StatusNotStarted}), 2)
	assert.Len(t, s.Filter(Filter{Status: StatusDone}), 1)
	high := s.Filter(Filter{Priority: PriorityHigh})
	require.Len(t, high, 1)
	assert.Equal(t, "c", high[0].ID)
}
