package tasks

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

var statusAliases = map[string]Status{
	"not_started": StatusNotStarted,
	"in_progress": StatusInProgress,
	"done":        StatusDone,
	"시작전":         StatusNotStarted,
	"진행중":         StatusInProgress,
	"완료":          StatusDone,
}

// ParseStatus accepts the canonical values and their Korean labels.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusAliases[strings.TrimSpace(s)]
	return st, ok
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority ranks a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

var priorityAliases = map[string]Priority{
	"high":   PriorityHigh,
	"normal": PriorityNormal,
	"low":    PriorityLow,
	"높음":     PriorityHigh,
	"보통":     PriorityNormal,
	"낮음":     PriorityLow,
}

// ParsePriority accepts the canonical values and their Korean labels.
func ParsePriority(s string) (Priority, bool) {
	p, ok := priorityAliases[strings.TrimSpace(s)]
	return p, ok
}

// NormalizePriority parses s and falls back to PriorityNormal.
func NormalizePriority(s string) Priority {
	if p, ok := ParsePriority(s); ok {
		return p
	}
	return PriorityNormal
}

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// Unassigned marks a task without a known owner.
const Unassigned = "미지정"

// DateLayout is the calendar-date format used for Task.Date.
const DateLayout = "2006-01-02"

// ChecklistItem is one fine-grained action. Its identity is its position.
type ChecklistItem struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// Task is a persisted action record.
type Task struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Status      Status          `json:"status"`
	Assignee    string          `json:"assignee"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Items       []ChecklistItem `json:"items"`
	Progress    int             `json:"progress"`
	Priority    Priority        `json:"priority"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (t Task) clone() Task {
	t.Items = append([]ChecklistItem(nil), t.Items...)
	if t.Items == nil {
		t.Items = []ChecklistItem{}
	}
	return t
}

// NewTask is the input to Store.Create. Empty fields take defaults.
type NewTask struct {
	Title       string          `json:"title"`
	Status      Status          `json:"status,omitempty"`
	Assignee    string          `json:"assignee,omitempty"`
	Date        string          `json:"date,omitempty"`
	Description string          `json:"description,omitempty"`
	Items       []ChecklistItem `json:"items,omitempty"`
	Priority    Priority        `json:"priority,omitempty"`
}

// Update carries the user-editable fields. Nil fields are left unchanged.
type Update struct {
	Status      *Status   `json:"status,omitempty"`
	Assignee    *string   `json:"assignee,omitempty"`
	Description *string   `json:"description,omitempty"`
	Date        *string   `json:"date,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Status == nil && u.Assignee == nil && u.Description == nil && u.Date == nil && u.Priority == nil
}

// Patch is a row-level merge sent to the Backend. Nil fields and a nil
// Items slice are left unchanged.
type Patch struct {
	Status      *Status
	Assignee    *string
	Description *string
	Date        *string
	Priority    *Priority
	Items       []ChecklistItem
	Progress    *int
}

// Apply merges p into t.
func (p Patch) Apply(t *Task) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Items != nil {
		t.Items = append([]ChecklistItem(nil), p.Items...)
	}
	if p.Progress != nil {
		t.Progress = *p.Progress
	}
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Status   Status
	Priority Priority
}

// Match reports whether t passes the filter.
func (f Filter) Match(t Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	return true
}
