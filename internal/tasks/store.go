// Package tasks holds the task cache and its synchronization with the
// persistent store.
//
// Update and ToggleItem are optimistic: the cache changes before the call
// returns and the backend write runs in the background, reported through a
// *Pending. A rejected write is logged and surfaced but never rolled back,
// so the cache may diverge from the store until the next Load. Create and
// Delete wait for the backend and only touch the cache on success.
package tasks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/minutes/internal/tasks"

// Store is the session's authoritative task collection.
type Store struct {
	backend    Backend
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
	onRejected func(id string, err error)

	mu    sync.Mutex
	tasks []Task
	// tails holds the latest unfinished write per task; each write waits
	// for its predecessor so the backend sees cache order.
	tails map[string]*Pending
}

// Option configures a Store.
type Option func(*Store)

// WithTracer sets the tracer used for store spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) { s.tracer = t }
}

// WithRejectionHook registers fn to run when a background write fails.
func WithRejectionHook(fn func(id string, err error)) Option {
	return func(s *Store) { s.onRejected = fn }
}

// WithClock overrides the clock used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store. Call Load to populate it.
func NewStore(backend Backend, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		backend: backend,
		logger:  logger,
		tracer:  otel.Tracer(instrumentationName),
		now:     time.Now,
		tasks:   []Task{},
		tails:   make(map[string]*Pending),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the cache with the backend contents. On failure the
// previous contents are kept.
func (s *Store) Load(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "tasks.Load")
	defer span.End()

	list, err := s.backend.ListTasks(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		s.logger.Error("loading tasks failed", zap.Error(err))
		return &PersistenceError{Op: "load", Err: err}
	}

	fresh := make([]Task, 0, len(list))
	for _, t := range list {
		fresh = append(fresh, t.clone())
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].CreatedAt.After(fresh[j].CreatedAt)
	})

	s.mu.Lock()
	s.tasks = fresh
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("tasks.count", len(fresh)))
	s.logger.Debug("tasks loaded", zap.Int("count", len(fresh)))
	return nil
}

// List returns copies of the cached tasks, newest first.
func (s *Store) List() []Task {
	return s.Filter(Filter{})
}

// Filter returns copies of the cached tasks matching f, newest first.
func (s *Store) Filter(f Filter) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.Match(t) {
			out = append(out, t.clone())
		}
	}
	return out
}

// Get returns a copy of the cached task.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i].clone(), true
	}
	return Task{}, false
}

// Create persists a new task and, on success, puts it at the front of the
// cache.
func (s *Store) Create(ctx context.Context, in NewTask) (Task, error) {
	ctx, span := s.tracer.Start(ctx, "tasks.Create")
	defer span.End()

	t, err := s.prepare(in)
	if err != nil {
		span.SetStatus(codes.Error, "invalid task")
		return Task{}, err
	}

	created, err := s.backend.InsertTask(ctx, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		s.logger.Error("creating task failed", zap.String("title", t.Title), zap.Error(err))
		return Task{}, &PersistenceError{Op: "create", Err: err}
	}
	created = created.clone()

	s.mu.Lock()
	s.tasks = append([]Task{created}, s.tasks...)
	s.mu.Unlock()

	span.SetAttributes(attribute.String("task.id", created.ID))
	s.logger.Info("task created", zap.String("task_id", created.ID), zap.String("title", created.Title))
	return created.clone(), nil
}

func (s *Store) prepare(in NewTask) (Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return Task{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}

	status := in.Status
	if status == "" {
		status = StatusNotStarted
	} else if parsed, ok := ParseStatus(string(status)); ok {
		status = parsed
	} else {
		return Task{}, &ValidationError{Field: "status", Reason: "unknown status " + string(in.Status)}
	}

	assignee := in.Assignee
	if strings.TrimSpace(assignee) == "" {
		assignee = Unassigned
	}
	date := in.Date
	if date == "" {
		date = s.now().Format(DateLayout)
	}
	items := append([]ChecklistItem{}, in.Items...)

	return Task{
		Title:       in.Title,
		Status:      status,
		Assignee:    assignee,
		Date:        date,
		Description: in.Description,
		Items:       items,
		Progress:    Progress(items),
		Priority:    NormalizePriority(string(in.Priority)),
	}, nil
}

// Update merges u into the cached task and persists the same fields in
// the background. Status must be valid; an unknown priority becomes normal.
func (s *Store) Update(ctx context.Context, id string, u Update) (*Pending, error) {
	if u.Empty() {
		return nil, &ValidationError{Field: "update", Reason: "no fields to change"}
	}

	var p Patch
	if u.Status != nil {
		st, ok := ParseStatus(string(*u.Status))
		if !ok {
			return nil, &ValidationError{Field: "status", Reason: "unknown status " + string(*u.Status)}
		}
		p.Status = &st
	}
	if u.Priority != nil {
		pr := NormalizePriority(string(*u.Priority))
		p.Priority = &pr
	}
	p.Assignee, p.Description, p.Date = u.Assignee, u.Description, u.Date

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	p.Apply(&s.tasks[i])

	return s.enqueue(ctx, "tasks.Update", id, p), nil
}

// ToggleItem flips the checklist item at index, recomputes progress and
// persists the whole checklist with the new progress in one write.
func (s *Store) ToggleItem(ctx context.Context, id string, index int) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	items := append([]ChecklistItem(nil), s.tasks[i].Items...)
	if index < 0 || index >= len(items) {
		return nil, &ValidationError{Field: "index", Reason: "checklist item out of range"}
	}
	items[index].Checked = !items[index].Checked
	progress := Progress(items)

	p := Patch{Items: items, Progress: &progress}
	p.Apply(&s.tasks[i])

	return s.enqueue(ctx, "tasks.ToggleItem", id, p), nil
}

// Delete removes the task from the backend and then from the cache. Earlier
// writes for the same task are allowed to finish first.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "tasks.Delete", trace.WithAttributes(attribute.String("task.id", id)))
	defer span.End()

	s.mu.Lock()
	prev := s.tails[id]
	s.mu.Unlock()
	if prev != nil {
		if err := prev.Wait(ctx); err != nil && ctx.Err() != nil {
			return err
		}
	}

	err := s.backend.DeleteTask(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		s.logger.Error("deleting task failed", zap.String("task_id", id), zap.Error(err))
		return &PersistenceError{Op: "delete", TaskID: id, Err: err}
	}

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	}
	s.mu.Unlock()

	if err != nil {
		return ErrNotFound
	}
	s.logger.Info("task deleted", zap.String("task_id", id))
	return nil
}

// Wait blocks until every queued background write has finished.
func (s *Store) Wait(ctx context.Context) error {
	s.mu.Lock()
	pending := make([]*Pending, 0, len(s.tails))
	for _, p := range s.tails {
		pending = append(pending, p)
	}
	s.mu.Unlock()

	for _, p := range pending {
		select {
		case <-p.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// enqueue schedules a backend patch behind earlier writes for the same
// task. Callers hold s.mu.
func (s *Store) enqueue(ctx context.Context, op, id string, p Patch) *Pending {
	prev := s.tails[id]
	pending := newPending(id)
	s.tails[id] = pending

	ctx = context.WithoutCancel(ctx)
	go func() {
		if prev != nil {
			<-prev.Done()
		}

		ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("task.id", id)))
		err := s.backend.PatchTask(ctx, id, p)
		if err != nil {
			err = &PersistenceError{Op: "update", TaskID: id, Err: err}
			span.RecordError(err)
			span.SetStatus(codes.Error, "patch rejected")
		}
		span.End()

		s.mu.Lock()
		if s.tails[id] == pending {
			delete(s.tails, id)
		}
		s.mu.Unlock()

		pending.finish(err)

		if err != nil {
			s.logger.Error("task write rejected; cache left as is",
				zap.String("task_id", id),
				zap.String("op", op),
				zap.Error(err),
			)
			if s.onRejected != nil {
				s.onRejected(id, err)
			}
		}
	}()
	return pending
}

// indexOf returns the cache position of id or -1. Callers hold s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
