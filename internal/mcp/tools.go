package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minutes/internal/comments"
	"github.com/fyrsmithlabs/minutes/internal/extraction"
	"github.com/fyrsmithlabs/minutes/internal/logging"
	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

var errInvalidInput = errors.New("invalid input")

const writeWait = 30 * time.Second

// addTool registers h under name with invocation metrics and logging.
func addTool[In, Out any](s *Server, name, description string, h func(context.Context, In) (Out, error)) {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        name,
		Description: description,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, name)
		if req != nil && req.Session != nil {
			ctx = logging.WithSessionID(ctx, req.Session.ID())
		}

		out, err := h(ctx, in)

		s.metrics.DecrementActive(ctx, name)
		s.metrics.RecordInvocation(ctx, name, time.Since(start), err)
		if err != nil {
			logging.With(ctx, s.logger).Warn("tool failed", zap.String("tool", name), zap.Error(err))
			var zero Out
			return nil, zero, err
		}
		return nil, out, nil
	})
}

func (s *Server) registerTools() {
	s.registerExtractionTools()
	s.registerTaskTools()
	s.registerCommentTools()
}

// ===== VIEWS =====

type itemView struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

type taskView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Assignee    string     `json:"assignee"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Items       []itemView `json:"items"`
	Progress    int        `json:"progress"`
	Priority    string     `json:"priority"`
	CreatedAt   string     `json:"created_at"`
}

func viewTask(t tasks.Task) taskView {
	items := make([]itemView, len(t.Items))
	for i, it := range t.Items {
		items[i] = itemView{Text: it.Text, Checked: it.Checked}
	}
	return taskView{
		ID:          t.ID,
		Title:       t.Title,
		Status:      string(t.Status),
		Assignee:    t.Assignee,
		Date:        t.Date,
		Description: t.Description,
		Items:       items,
		Progress:    t.Progress,
		Priority:    string(t.Priority),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func viewTasks(list []tasks.Task) []taskView {
	out := make([]taskView, len(list))
	for i, t := range list {
		out[i] = viewTask(t)
	}
	return out
}

type draftView struct {
	Index       int      `json:"index"`
	Title       string   `json:"title"`
	Assignee    string   `json:"assignee"`
	Priority    string   `json:"priority"`
	Description string   `json:"description"`
	Items       []string `json:"items"`
	Date        string   `json:"date"`
	Added       bool     `json:"added"`
}

func viewDrafts(drafts []*extraction.Draft) []draftView {
	out := make([]draftView, len(drafts))
	for i, d := range drafts {
		out[i] = draftView{
			Index:       i,
			Title:       d.Title,
			Assignee:    d.Assignee,
			Priority:    string(d.Priority),
			Description: d.Description,
			Items:       append([]string{}, d.Items...),
			Date:        d.Date,
			Added:       d.Added(),
		}
	}
	return out
}

type commentView struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func viewComment(c comments.Comment) commentView {
	return commentView{ID: c.ID, Author: c.Author, Content: c.Content, CreatedAt: c.CreatedAt.Format(time.RFC3339)}
}

// ===== EXTRACTION TOOLS =====

type extractInput struct {
	Note string `json:"note" jsonschema:"Raw meeting-note text. Use // to separate topics that must not be merged."`
}

type draftsOutput struct {
	Summary string      `json:"summary"`
	Drafts  []draftView `json:"drafts"`
	Dropped int         `json:"dropped"`
}

type emptyInput struct{}

type addDraftInput struct {
	Index int `json:"index" jsonschema:"Position of the draft in list_drafts"`
}

type addDraftOutput struct {
	Created bool      `json:"created"`
	Task    *taskView `json:"task,omitempty"`
}

type okOutput struct {
	OK bool `json:"ok"`
}

func (s *Server) registerExtractionTools() {
	addTool(s, "extract_tasks",
		"Extract task drafts from meeting notes. Replaces the staged drafts on success.",
		func(ctx context.Context, in extractInput) (draftsOutput, error) {
			res, err := s.session.Extract(ctx, in.Note)
			if err != nil {
				return draftsOutput{}, err
			}
			return draftsOutput{Summary: res.Summary, Drafts: viewDrafts(res.Drafts), Dropped: len(res.Diagnostics)}, nil
		})

	addTool(s, "list_drafts",
		"List the staged task drafts from the last extraction",
		func(ctx context.Context, _ emptyInput) (draftsOutput, error) {
			return draftsOutput{Summary: s.session.Summary(), Drafts: viewDrafts(s.session.Drafts())}, nil
		})

	addTool(s, "add_draft",
		"Save a staged draft as a task. A draft is saved at most once.",
		func(ctx context.Context, in addDraftInput) (addDraftOutput, error) {
			t, created, err := s.session.AddDraft(ctx, in.Index)
			if err != nil || !created {
				return addDraftOutput{}, err
			}
			v := viewTask(t)
			return addDraftOutput{Created: true, Task: &v}, nil
		})

	addTool(s, "reset_session",
		"Clear the cached note, staged drafts and summary",
		func(ctx context.Context, _ emptyInput) (okOutput, error) {
			if err := s.session.Reset(ctx); err != nil {
				return okOutput{}, err
			}
			return okOutput{OK: true}, nil
		})
}

// ===== TASK TOOLS =====

type listTasksInput struct {
	Status   string `json:"status,omitempty" jsonschema:"Filter by status: not_started, in_progress or done"`
	Priority string `json:"priority,omitempty" jsonschema:"Filter by priority: high, normal or low"`
}

type listTasksOutput struct {
	Tasks []taskView `json:"tasks"`
}

type createTaskInput struct {
	Title       string   `json:"title" jsonschema:"Task title"`
	Assignee    string   `json:"assignee,omitempty" jsonschema:"Owner; defaults to unassigned"`
	Status      string   `json:"status,omitempty" jsonschema:"not_started, in_progress or done"`
	Priority    string   `json:"priority,omitempty" jsonschema:"high, normal or low"`
	Date        string   `json:"date,omitempty" jsonschema:"Due date as YYYY-MM-DD; defaults to today"`
	Description string   `json:"description,omitempty" jsonschema:"Free-form details"`
	Items       []string `json:"items,omitempty" jsonschema:"Checklist entries"`
}

type taskOutput struct {
	Task    taskView `json:"task"`
	Pending bool     `json:"pending"`
}

type updateTaskInput struct {
	ID          string  `json:"id" jsonschema:"Task id"`
	Status      *string `json:"status,omitempty" jsonschema:"not_started, in_progress or done"`
	Assignee    *string `json:"assignee,omitempty" jsonschema:"New owner"`
	Description *string `json:"description,omitempty" jsonschema:"New description"`
	Date        *string `json:"date,omitempty" jsonschema:"New date as YYYY-MM-DD"`
	Priority    *string `json:"priority,omitempty" jsonschema:"high, normal or low"`
	Wait        bool    `json:"wait,omitempty" jsonschema:"Wait for the store to confirm the write"`
}

type toggleItemInput struct {
	ID    string `json:"id" jsonschema:"Task id"`
	Index int    `json:"index" jsonschema:"Checklist position, starting at 0"`
	Wait  bool   `json:"wait,omitempty" jsonschema:"Wait for the store to confirm the write"`
}

type taskIDInput struct {
	ID string `json:"id" jsonschema:"Task id"`
}

func (s *Server) registerTaskTools() {
	addTool(s, "list_tasks",
		"List saved tasks, newest first, optionally filtered",
		func(ctx context.Context, in listTasksInput) (listTasksOutput, error) {
			var f tasks.Filter
			if in.Status != "" {
				st, ok := tasks.ParseStatus(in.Status)
				if !ok {
					return listTasksOutput{}, fmt.Errorf("%w: unknown status %q", errInvalidInput, in.Status)
				}
				f.Status = st
			}
			if in.Priority != "" {
				p, ok := tasks.ParsePriority(in.Priority)
				if !ok {
					return listTasksOutput{}, fmt.Errorf("%w: unknown priority %q", errInvalidInput, in.Priority)
				}
				f.Priority = p
			}
			return listTasksOutput{Tasks: viewTasks(s.session.Tasks(f))}, nil
		})

	addTool(s, "create_task",
		"Create a task directly, without extraction",
		func(ctx context.Context, in createTaskInput) (taskOutput, error) {
			items := make([]tasks.ChecklistItem, len(in.Items))
			for i, text := range in.Items {
				items[i] = tasks.ChecklistItem{Text: text}
			}
			t, err := s.session.CreateTask(ctx, tasks.NewTask{
				Title:       in.Title,
				Status:      tasks.Status(in.Status),
				Assignee:    in.Assignee,
				Date:        in.Date,
				Description: in.Description,
				Items:       items,
				Priority:    tasks.Priority(in.Priority),
			})
			if err != nil {
				return taskOutput{}, err
			}
			return taskOutput{Task: viewTask(t)}, nil
		})

	addTool(s, "update_task",
		"Edit a task's status, assignee, description, date or priority",
		func(ctx context.Context, in updateTaskInput) (taskOutput, error) {
			var u tasks.Update
			if in.Status != nil {
				st := tasks.Status(*in.Status)
				u.Status = &st
			}
			if in.Priority != nil {
				p := tasks.Priority(*in.Priority)
				u.Priority = &p
			}
			u.Assignee, u.Description, u.Date = in.Assignee, in.Description, in.Date

			p, err := s.session.UpdateTask(ctx, in.ID, u)
			if err != nil {
				return taskOutput{}, err
			}
			return s.settle(ctx, in.ID, p, in.Wait)
		})

	addTool(s, "toggle_item",
		"Check or uncheck one checklist entry and recompute progress",
		func(ctx context.Context, in toggleItemInput) (taskOutput, error) {
			p, err := s.session.ToggleItem(ctx, in.ID, in.Index)
			if err != nil {
				return taskOutput{}, err
			}
			return s.settle(ctx, in.ID, p, in.Wait)
		})

	addTool(s, "delete_task",
		"Delete a task",
		func(ctx context.Context, in taskIDInput) (okOutput, error) {
			if err := s.session.DeleteTask(ctx, in.ID); err != nil {
				return okOutput{}, err
			}
			return okOutput{OK: true}, nil
		})
}

// settle reports the optimistic task, waiting for confirmation when asked.
func (s *Server) settle(ctx context.Context, id string, p *tasks.Pending, wait bool) (taskOutput, error) {
	if wait {
		wctx, cancel := context.WithTimeout(ctx, writeWait)
		defer cancel()
		if err := p.Wait(wctx); err != nil {
			return taskOutput{}, err
		}
	}
	t, ok := s.session.Task(id)
	if !ok {
		return taskOutput{}, tasks.ErrNotFound
	}
	select {
	case <-p.Done():
		if err := p.Err(); err != nil {
			return taskOutput{}, err
		}
		return taskOutput{Task: viewTask(t)}, nil
	default:
		return taskOutput{Task: viewTask(t), Pending: true}, nil
	}
}

// ===== COMMENT TOOLS =====

type addCommentInput struct {
	ID      string `json:"id" jsonschema:"Task id"`
	Content string `json:"content" jsonschema:"Comment text"`
}

type commentsOutput struct {
	Comments []commentView `json:"comments"`
}

type commentOutput struct {
	Comment commentView `json:"comment"`
}

func (s *Server) registerCommentTools() {
	addTool(s, "list_comments",
		"List a task's comments, oldest first",
		func(ctx context.Context, in taskIDInput) (commentsOutput, error) {
			list := s.session.Comments(ctx, in.ID)
			out := make([]commentView, len(list))
			for i, c := range list {
				out[i] = viewComment(c)
			}
			return commentsOutput{Comments: out}, nil
		})

	addTool(s, "add_comment",
		"Append a comment to a task",
		func(ctx context.Context, in addCommentInput) (commentOutput, error) {
			c, err := s.session.AddComment(ctx, in.ID, in.Content)
			if err != nil {
				return commentOutput{}, err
			}
			return commentOutput{Comment: viewComment(c)}, nil
		})
}
