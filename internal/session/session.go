// Package session ties the extraction pipeline, the staged drafts, the
// task store, comment threads and the note cache into one user session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minutes/internal/comments"
	"github.com/fyrsmithlabs/minutes/internal/draftcache"
	"github.com/fyrsmithlabs/minutes/internal/extraction"
	"github.com/fyrsmithlabs/minutes/internal/logging"
	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

var (
	// ErrDraftNotFound is returned for a draft index outside the staged list.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrExtractionDiscarded is returned when the session was reset while
	// the extraction was running. Its result is not staged.
	ErrExtractionDiscarded = errors.New("extraction discarded after session reset")
)

// Deps are the collaborators a Session drives.
type Deps struct {
	Pipeline *extraction.Pipeline
	Store    *tasks.Store
	Comments *comments.Thread
	Drafts   *draftcache.Cache
	Logger   *zap.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Pipeline == nil:
		return errors.New("session: pipeline is required")
	case d.Store == nil:
		return errors.New("session: task store is required")
	case d.Comments == nil:
		return errors.New("session: comment thread is required")
	case d.Drafts == nil:
		return errors.New("session: draft cache is required")
	}
	return nil
}

// Session is the handle every outer surface works through.
type Session struct {
	pipeline *extraction.Pipeline
	store    *tasks.Store
	comments *comments.Thread
	cache    *draftcache.Cache
	logger   *zap.Logger

	mu      sync.Mutex
	epoch   uint64
	summary string
	drafts  []*extraction.Draft
}

// Open builds a session and loads the task list. A failed load is logged
// and leaves the list empty; Refresh retries it.
func Open(ctx context.Context, deps Deps) (*Session, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &Session{
		pipeline: deps.Pipeline,
		store:    deps.Store,
		comments: deps.Comments,
		cache:    deps.Drafts,
		logger:   deps.Logger,
	}
	if err := s.store.Load(ctx); err != nil {
		s.logger.Warn("initial task load failed", zap.Error(err))
	}
	return s, nil
}

// Refresh reloads the task list from the store.
func (s *Session) Refresh(ctx context.Context) error {
	return s.store.Load(ctx)
}

// Loading reports whether an extraction is running.
func (s *Session) Loading() bool {
	return s.pipeline.Loading()
}

// Extract caches note, runs the pipeline and stages the resulting drafts,
// replacing any previous ones. On failure the staged drafts are kept. A
// result that arrives after Reset is dropped with ErrExtractionDiscarded.
func (s *Session) Extract(ctx context.Context, note string) (*extraction.Result, error) {
	if strings.TrimSpace(note) != "" && !s.pipeline.Loading() {
		if err := s.cache.Save(ctx, note); err != nil {
			logging.With(ctx, s.logger).Warn("caching note failed", zap.Error(err))
		}
	}

	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	res, err := s.pipeline.Extract(ctx, note)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		logging.With(ctx, s.logger).Info("discarding extraction finished after reset",
			zap.Int("drafts", len(res.Drafts)))
		return nil, ErrExtractionDiscarded
	}
	s.epoch++
	s.summary = res.Summary
	s.drafts = res.Drafts
	return res, nil
}

// Summary returns the summary of the last successful extraction.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Drafts returns the staged drafts in generator order.
func (s *Session) Drafts() []*extraction.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*extraction.Draft(nil), s.drafts...)
}

// AddDraft promotes the staged draft at index to a task. A draft that was
// already added yields created=false and no error. When the store rejects
// the task the draft can be added again.
func (s *Session) AddDraft(ctx context.Context, index int) (tasks.Task, bool, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.drafts) {
		s.mu.Unlock()
		return tasks.Task{}, false, fmt.Errorf("draft %d: %w", index, ErrDraftNotFound)
	}
	d := s.drafts[index]
	s.mu.Unlock()

	if !d.MarkSubmitted() {
		return tasks.Task{}, false, nil
	}
	t, err := s.store.Create(ctx, d.NewTask())
	if err != nil {
		d.Release()
		return tasks.Task{}, false, err
	}
	logging.With(ctx, s.logger).Info("draft added", zap.Int("index", index), zap.String("task_id", t.ID))
	return t, true, nil
}

// Reset clears the cached note, the staged drafts and the summary.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.epoch++
	s.summary = ""
	s.drafts = nil
	s.mu.Unlock()
	return s.cache.Clear(ctx)
}

// Note returns the cached note text.
func (s *Session) Note(ctx context.Context) string {
	return s.cache.Load(ctx)
}

// SaveNote caches the note text being edited.
func (s *Session) SaveNote(ctx context.Context, text string) error {
	return s.cache.Save(ctx, text)
}

// Tasks returns the cached tasks matching f, newest first.
func (s *Session) Tasks(f tasks.Filter) []tasks.Task {
	return s.store.Filter(f)
}

// Task returns one cached task.
func (s *Session) Task(id string) (tasks.Task, bool) {
	return s.store.Get(id)
}

// CreateTask adds a manually entered task.
func (s *Session) CreateTask(ctx context.Context, in tasks.NewTask) (tasks.Task, error) {
	return s.store.Create(ctx, in)
}

// UpdateTask applies an optimistic field edit.
func (s *Session) UpdateTask(ctx context.Context, id string, u tasks.Update) (*tasks.Pending, error) {
	return s.store.Update(ctx, id, u)
}

// ToggleItem flips one checklist entry.
func (s *Session) ToggleItem(ctx context.Context, id string, index int) (*tasks.Pending, error) {
	return s.store.ToggleItem(ctx, id, index)
}

// DeleteTask removes a task once the store confirms.
func (s *Session) DeleteTask(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Comments returns the task's comments, oldest first.
func (s *Session) Comments(ctx context.Context, taskID string) []comments.Comment {
	return s.comments.Fetch(ctx, taskID)
}

// AddComment appends a comment to the task's thread.
func (s *Session) AddComment(ctx context.Context, taskID, content string) (comments.Comment, error) {
	return s.comments.Append(ctx, taskID, content)
}

// Wait blocks until background task writes have finished.
func (s *Session) Wait(ctx context.Context) error {
	return s.store.Wait(ctx)
}
