package http

import (
	"github.com/fyrsmithlabs/minutes/internal/comments"
	"github.com/fyrsmithlabs/minutes/internal/extraction"
	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Loading bool   `json:"loading"`
}

// TextRequest carries note text for POST /api/v1/extract and PUT /api/v1/note.
type TextRequest struct {
	Text string `json:"text"`
}

// NoteResponse is the response body for GET /api/v1/note.
type NoteResponse struct {
	Text string `json:"text"`
}

// DraftsResponse lists the staged drafts.
type DraftsResponse struct {
	Summary string              `json:"summary"`
	Drafts  []*extraction.Draft `json:"drafts"`
}

// AddDraftResponse reports the outcome of promoting a draft.
type AddDraftResponse struct {
	Created bool        `json:"created"`
	Task    *tasks.Task `json:"task,omitempty"`
}

// TasksResponse lists tasks.
type TasksResponse struct {
	Tasks []tasks.Task `json:"tasks"`
}

// TaskResponse carries one task. Pending is true while its write is
// still in flight.
type TaskResponse struct {
	Task    tasks.Task `json:"task"`
	Pending bool       `json:"pending"`
}

// CommentRequest is the body of POST /api/v1/tasks/:id/comments.
type CommentRequest struct {
	Content string `json:"content"`
}

// CommentsResponse lists a task's comments.
type CommentsResponse struct {
	Comments []comments.Comment `json:"comments"`
}
