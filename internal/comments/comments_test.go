package comments

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

type memBackend struct {
	mu        sync.Mutex
	rows      []Comment
	clock     time.Time
	listErr   error
	insertErr error
	inserts   int
}

func (m *memBackend) ListComments(_ context.Context, taskID string) ([]Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Comment
	// Newest first to prove Fetch orders the thread itself.
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].TaskID == taskID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memBackend) InsertComment(_ context.Context, c Comment) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		return Comment{}, m.insertErr
	}
	m.clock = m.clock.Add(time.Second)
	c.ID = fmt.Sprintf("c%d", len(m.rows)+1)
	c.CreatedAt = m.clock
	m.rows = append(m.rows, c)
	return c, nil
}

func TestThread_AppendAndFetchOrder(t *testing.T) {
	b := &memBackend{clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	th := NewThread(b, nil)
	ctx := context.Background()

	for _, text := range []string{"first", "  second  ", "third"} {
		_, err := th.Append(ctx, "task-1", text)
		require.NoError(t, err)
	}
	_, err := th.Append(ctx, "task-2", "other")
	require.NoError(t, err)

	got := th.Fetch(ctx, "task-1")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{got[0].Content, got[1].Content, got[2].Content})
	for _, c := range got {
		assert.Equal(t, Author, c.Author)
		assert.Equal(t, "task-1", c.TaskID)
	}
}

func TestThread_AppendValidation(t *testing.T) {
	b := &memBackend{}
	th := NewThread(b, nil)

	_, err := th.Append(context.Background(), "task-1", "   \n")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "content", verr.Field)

	_, err = th.Append(context.Background(), "", "hi")
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, b.inserts)
}

func TestThread_AppendFailurePropagates(t *testing.T) {
	cause := errors.New("store offline")
	b := &memBackend{insertErr: cause}
	th := NewThread(b, nil)

	_, err := th.Append(context.Background(), "task-1", "hi")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, b.inserts, "no retry")
}

func TestThread_FetchFailureIsEmpty(t *testing.T) {
	tl := logging.NewTestLogger()
	th := NewThread(&memBackend{listErr: errors.New("boom")}, tl.Logger)

	got := th.Fetch(context.Background(), "task-1")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	tl.AssertLogged(t, zapcore.WarnLevel, "fetching comments failed")
}

func TestThread_FetchNoneIsEmpty(t *testing.T) {
	th := NewThread(&memBackend{}, nil)
	got := th.Fetch(context.Background(), "nobody")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
