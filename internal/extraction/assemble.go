package extraction

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

// Draft is a staged task suggestion. It becomes a Task at most once.
type Draft struct {
	Title       string
	Assignee    string
	Priority    tasks.Priority
	Description string
	Items       []string
	Date        string

	submitted atomic.Bool
}

// Added reports whether the draft has been promoted to a task.
func (d *Draft) Added() bool {
	return d.submitted.Load()
}

// MarkSubmitted claims the draft for promotion. Only the first caller gets
// true.
func (d *Draft) MarkSubmitted() bool {
	return d.submitted.CompareAndSwap(false, true)
}

// Release returns a claimed draft to the unsubmitted state after a failed
// promotion.
func (d *Draft) Release() {
	d.submitted.Store(false)
}

// NewTask converts the draft into store input: not started, every checklist
// item unchecked.
func (d *Draft) NewTask() tasks.NewTask {
	items := make([]tasks.ChecklistItem, len(d.Items))
	for i, text := range d.Items {
		items[i] = tasks.ChecklistItem{Text: text}
	}
	return tasks.NewTask{
		Title:       d.Title,
		Status:      tasks.StatusNotStarted,
		Assignee:    d.Assignee,
		Date:        d.Date,
		Description: d.Description,
		Items:       items,
		Priority:    d.Priority,
	}
}

type draftJSON struct {
	Title       string         `json:"title"`
	Assignee    string         `json:"assignee"`
	Priority    tasks.Priority `json:"priority"`
	Description string         `json:"description"`
	Items       []string       `json:"items"`
	Date        string         `json:"date"`
	Added       bool           `json:"added"`
}

func (d *Draft) MarshalJSON() ([]byte, error) {
	return json.Marshal(draftJSON{
		Title:       d.Title,
		Assignee:    d.Assignee,
		Priority:    d.Priority,
		Description: d.Description,
		Items:       d.Items,
		Date:        d.Date,
		Added:       d.Added(),
	})
}

// Assemble turns validated entries into unsubmitted drafts dated now, in
// generator order.
func Assemble(p *Payload, now time.Time) []*Draft {
	if p == nil {
		return nil
	}
	date := now.Format(tasks.DateLayout)
	drafts := make([]*Draft, 0, len(p.Entries))
	for _, e := range p.Entries {
		drafts = append(drafts, &Draft{
			Title:       e.Title,
			Assignee:    e.Assignee,
			Priority:    e.Priority,
			Description: e.Description,
			Items:       append([]string{}, e.Items...),
			Date:        date,
		})
	}
	return drafts
}
