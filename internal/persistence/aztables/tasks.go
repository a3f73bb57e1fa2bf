package aztables

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

type taskEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Title        string `json:"Title"`
	Status       string `json:"Status"`
	Assignee     string `json:"Assignee"`
	Date         string `json:"Date"`
	Description  string `json:"Description"`
	Items        string `json:"Items"`
	Progress     int    `json:"Progress"`
	Priority     string `json:"Priority"`
	CreatedAt    string `json:"CreatedAt"`
}

func (e taskEntity) toTask() (tasks.Task, error) {
	t := tasks.Task{
		ID:          e.RowKey,
		Title:       e.Title,
		Status:      tasks.Status(e.Status),
		Assignee:    e.Assignee,
		Date:        e.Date,
		Description: e.Description,
		Progress:    e.Progress,
		Priority:    tasks.Priority(e.Priority),
		Items:       []tasks.ChecklistItem{},
	}
	if e.Items != "" {
		if err := json.Unmarshal([]byte(e.Items), &t.Items); err != nil {
			return tasks.Task{}, fmt.Errorf("task %s: invalid items: %w", e.RowKey, err)
		}
	}
	created, err := parseTime(e.CreatedAt)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("task %s: %w", e.RowKey, err)
	}
	t.CreatedAt = created
	return t, nil
}

// ListTasks returns every task, newest first.
func (s *Storage) ListTasks(ctx context.Context) ([]tasks.Task, error) {
	filter := "PartitionKey eq " + quote(TaskPartition)
	pager := s.tasks.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	var out []tasks.Task
	err := listAll(ctx, pager, func(raw []byte) error {
		var ent taskEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return fmt.Errorf("failed to decode task entity: %w", err)
		}
		t, err := ent.toTask()
		if err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// InsertTask adds t under a new id.
func (s *Storage) InsertTask(ctx context.Context, t tasks.Task) (tasks.Task, error) {
	if t.Items == nil {
		t.Items = []tasks.ChecklistItem{}
	}
	items, err := json.Marshal(t.Items)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("failed to encode items: %w", err)
	}

	t.ID = s.newID()
	createdAt := s.now().UTC().Format(timeLayout)
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return tasks.Task{}, err
	}

	payload, err := marshal(taskEntity{
		PartitionKey: TaskPartition,
		RowKey:       t.ID,
		Title:        t.Title,
		Status:       string(t.Status),
		Assignee:     t.Assignee,
		Date:         t.Date,
		Description:  t.Description,
		Items:        string(items),
		Progress:     t.Progress,
		Priority:     string(t.Priority),
		CreatedAt:    createdAt,
	})
	if err != nil {
		return tasks.Task{}, err
	}
	if _, err := s.tasks.AddEntity(ctx, payload, nil); err != nil {
		return tasks.Task{}, fmt.Errorf("failed to add task: %w", err)
	}
	return t, nil
}

// PatchTask merges the fields set in p into the task row.
func (s *Storage) PatchTask(ctx context.Context, id string, p tasks.Patch) error {
	ent := map[string]any{
		"PartitionKey": TaskPartition,
		"RowKey":       id,
	}
	if p.Status != nil {
		ent["Status"] = string(*p.Status)
	}
	if p.Assignee != nil {
		ent["Assignee"] = *p.Assignee
	}
	if p.Description != nil {
		ent["Description"] = *p.Description
	}
	if p.Date != nil {
		ent["Date"] = *p.Date
	}
	if p.Priority != nil {
		ent["Priority"] = string(*p.Priority)
	}
	if p.Items != nil {
		items, err := json.Marshal(p.Items)
		if err != nil {
			return fmt.Errorf("failed to encode items: %w", err)
		}
		ent["Items"] = string(items)
	}
	if p.Progress != nil {
		ent["Progress"] = *p.Progress
	}
	if len(ent) == 2 {
		return nil
	}

	payload, err := marshal(ent)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.tasks.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("task %s: %w", id, tasks.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// DeleteTask removes the task row.
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	et := azcore.ETagAny
	_, err := s.tasks.DeleteEntity(ctx, TaskPartition, id, &aztables.DeleteEntityOptions{IfMatch: &et})
	if isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("task %s: %w", id, tasks.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
