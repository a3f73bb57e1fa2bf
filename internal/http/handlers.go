package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Loading: s.session.Loading()})
}

func (s *Server) handleExtract(c echo.Context) error {
	var req TextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.session.Extract(c.Request().Context(), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleDrafts(c echo.Context) error {
	return c.JSON(http.StatusOK, DraftsResponse{
		Summary: s.session.Summary(),
		Drafts:  s.session.Drafts(),
	})
}

func (s *Server) handleAddDraft(c echo.Context) error {
	index, err := intParam(c, "index")
	if err != nil {
		return err
	}
	t, created, err := s.session.AddDraft(c.Request().Context(), index)
	if err != nil {
		return err
	}
	if !created {
		return c.JSON(http.StatusOK, AddDraftResponse{Created: false})
	}
	return c.JSON(http.StatusCreated, AddDraftResponse{Created: true, Task: &t})
}

func (s *Server) handleReset(c echo.Context) error {
	if err := s.session.Reset(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetNote(c echo.Context) error {
	return c.JSON(http.StatusOK, NoteResponse{Text: s.session.Note(c.Request().Context())})
}

func (s *Server) handlePutNote(c echo.Context) error {
	var req TextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.session.SaveNote(c.Request().Context(), req.Text); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListTasks(c echo.Context) error {
	var f tasks.Filter
	if v := c.QueryParam("status"); v != "" {
		st, ok := tasks.ParseStatus(v)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown status filter")
		}
		f.Status = st
	}
	if v := c.QueryParam("priority"); v != "" {
		p, ok := tasks.ParsePriority(v)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown priority filter")
		}
		f.Priority = p
	}
	return c.JSON(http.StatusOK, TasksResponse{Tasks: s.session.Tasks(f)})
}

func (s *Server) handleRefresh(c echo.Context) error {
	if err := s.session.Refresh(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TasksResponse{Tasks: s.session.Tasks(tasks.Filter{})})
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var in tasks.NewTask
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := s.session.CreateTask(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, TaskResponse{Task: t})
}

func (s *Server) handleGetTask(c echo.Context) error {
	t, ok := s.session.Task(c.Param("id"))
	if !ok {
		return tasks.ErrNotFound
	}
	return c.JSON(http.StatusOK, TaskResponse{Task: t})
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	var u tasks.Update
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	id := c.Param("id")
	p, err := s.session.UpdateTask(c.Request().Context(), id, u)
	if err != nil {
		return err
	}
	return s.respondPending(c, id, p)
}

func (s *Server) handleToggleItem(c echo.Context) error {
	index, err := intParam(c, "index")
	if err != nil {
		return err
	}
	id := c.Param("id")
	p, err := s.session.ToggleItem(c.Request().Context(), id, index)
	if err != nil {
		return err
	}
	return s.respondPending(c, id, p)
}

// respondPending answers with the optimistic task. With ?wait=true it
// first waits for the backend to confirm the write.
func (s *Server) respondPending(c echo.Context, id string, p *tasks.Pending) error {
	if c.QueryParam("wait") == "true" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), s.config.WriteWait)
		defer cancel()
		if err := p.Wait(ctx); err != nil {
			return err
		}
	}
	t, ok := s.session.Task(id)
	if !ok {
		return tasks.ErrNotFound
	}
	select {
	case <-p.Done():
		if err := p.Err(); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, TaskResponse{Task: t})
	default:
		return c.JSON(http.StatusAccepted, TaskResponse{Task: t, Pending: true})
	}
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	if err := s.session.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListComments(c echo.Context) error {
	list := s.session.Comments(c.Request().Context(), c.Param("id"))
	return c.JSON(http.StatusOK, CommentsResponse{Comments: list})
}

func (s *Server) handleAddComment(c echo.Context) error {
	var req CommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cm, err := s.session.AddComment(c.Request().Context(), c.Param("id"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cm)
}

func intParam(c echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return v, nil
}
