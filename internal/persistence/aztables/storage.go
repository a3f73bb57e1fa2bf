// Package aztables stores tasks and comments in Azure Table Storage.
//
// Tasks live in a single partition keyed by task id. Comments are
// partitioned by task id with a time-ordered row key, so the service
// returns a thread in creation order.
package aztables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"
)

// TaskPartition is the partition key shared by every task row.
const TaskPartition = "tasks"

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// table is the subset of *aztables.Client used here.
type table interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// Storage implements the task and comment backends on two tables.
type Storage struct {
	tasks    table
	comments table
	now      func() time.Time
	newID    func() string
}

// New connects to the tables named tasksTable and commentsTable using an
// account connection string.
func New(connStr, tasksTable, commentsTable string) (*Storage, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			// The task store does not retry on its own; failures surface
			// to the caller once.
			Retry: policy.RetryOptions{MaxRetries: -1, TryTimeout: 30 * time.Second},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create table service client: %w", err)
	}
	return newStorage(svc.NewClient(tasksTable), svc.NewClient(commentsTable)), nil
}

func newStorage(tasks, comments table) *Storage {
	return &Storage{tasks: tasks, comments: comments, now: time.Now, newID: uuid.NewString}
}

// EnsureTables creates both tables when missing.
func EnsureTables(ctx context.Context, connStr string, names ...string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return fmt.Errorf("failed to create table service client: %w", err)
	}
	for _, name := range names {
		if _, err := svc.CreateTable(ctx, name, nil); err != nil && !isStatus(err, http.StatusConflict) {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
	}
	return nil
}

func isStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}

// listAll drains a pager, decoding each entity with decode.
func listAll(ctx context.Context, pager *runtime.Pager[aztables.ListEntitiesResponse], decode func([]byte) error) error {
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, e := range resp.Entities {
			if err := decode(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// quote renders s as an OData string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	return b, nil
}
