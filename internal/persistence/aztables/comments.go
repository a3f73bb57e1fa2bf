package aztables

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/fyrsmithlabs/minutes/internal/comments"
)

type commentEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	ID           string `json:"CommentID"`
	Author       string `json:"Author"`
	Content      string `json:"Content"`
	CreatedAt    string `json:"CreatedAt"`
}

// commentRowKey orders rows by creation time; the id suffix keeps keys
// unique within the same instant.
func commentRowKey(created time.Time, id string) string {
	return fmt.Sprintf("%020d-%s", created.UnixNano(), id)
}

// ListComments returns the task's comments, oldest first.
func (s *Storage) ListComments(ctx context.Context, taskID string) ([]comments.Comment, error) {
	filter := "PartitionKey eq " + quote(taskID)
	pager := s.comments.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	var out []comments.Comment
	err := listAll(ctx, pager, func(raw []byte) error {
		var ent commentEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return fmt.Errorf("failed to decode comment entity: %w", err)
		}
		created, err := parseTime(ent.CreatedAt)
		if err != nil {
			return fmt.Errorf("comment %s: %w", ent.ID, err)
		}
		out = append(out, comments.Comment{
			ID:        ent.ID,
			TaskID:    ent.PartitionKey,
			Author:    ent.Author,
			Content:   ent.Content,
			CreatedAt: created,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return out, nil
}

// InsertComment adds c under a new id.
func (s *Storage) InsertComment(ctx context.Context, c comments.Comment) (comments.Comment, error) {
	c.ID = s.newID()
	createdAt := s.now().UTC().Format(timeLayout)
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return comments.Comment{}, err
	}

	payload, err := marshal(commentEntity{
		PartitionKey: c.TaskID,
		RowKey:       commentRowKey(c.CreatedAt, c.ID),
		ID:           c.ID,
		Author:       c.Author,
		Content:      c.Content,
		CreatedAt:    createdAt,
	})
	if err != nil {
		return comments.Comment{}, err
	}
	if _, err := s.comments.AddEntity(ctx, payload, nil); err != nil {
		return comments.Comment{}, fmt.Errorf("failed to add comment: %w", err)
	}
	return c, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
