package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minutes/internal/session"
)

const payload = `{"summary":"기획 회의","tasks":[
	{"title":"랜딩 페이지 개편","assignee":"박지민","priority":"높음","items":["시안 검토","카피 확정"]}
]}`

// connect starts the server on in-memory transports and returns a client
// session.
func connect(t *testing.T, gen *session.StaticGenerator) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	sess := session.NewTestSession(t, gen, zap.NewNop())
	srv, err := NewServer(nil, sess)
	require.NoError(t, err)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := srv.mcp.Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

// call invokes a tool and decodes its structured output into out.
func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		b, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, out))
	}
	return res
}

func TestNewServer_RequiresSession(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestTools_Listed(t *testing.T) {
	cs := connect(t, &session.StaticGenerator{Text: payload})

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"extract_tasks", "list_drafts", "add_draft", "reset_session",
		"list_tasks", "create_task", "update_task", "toggle_item", "delete_task",
		"list_comments", "add_comment",
	}, names)
}

func TestTools_ExtractAndAdd(t *testing.T) {
	gen := &session.StaticGenerator{Text: payload}
	cs := connect(t, gen)

	var drafts draftsOutput
	res := call(t, cs, "extract_tasks", map[string]any{"note": "회의 메모"}, &drafts)
	require.False(t, res.IsError)
	require.Len(t, drafts.Drafts, 1)
	assert.Equal(t, "랜딩 페이지 개편", drafts.Drafts[0].Title)
	assert.Equal(t, "high", drafts.Drafts[0].Priority)
	assert.False(t, drafts.Drafts[0].Added)

	var added addDraftOutput
	call(t, cs, "add_draft", map[string]any{"index": 0}, &added)
	require.True(t, added.Created)
	require.NotNil(t, added.Task)
	assert.Equal(t, "not_started", added.Task.Status)
	assert.Len(t, added.Task.Items, 2)

	var again addDraftOutput
	call(t, cs, "add_draft", map[string]any{"index": 0}, &again)
	assert.False(t, again.Created)

	var list listTasksOutput
	call(t, cs, "list_tasks", map[string]any{}, &list)
	assert.Len(t, list.Tasks, 1)

	call(t, cs, "list_drafts", map[string]any{}, &drafts)
	assert.True(t, drafts.Drafts[0].Added)
}

func TestTools_BlankNoteIsToolError(t *testing.T) {
	gen := &session.StaticGenerator{Text: payload}
	cs := connect(t, gen)

	res := call(t, cs, "extract_tasks", map[string]any{"note": " "}, nil)
	assert.True(t, res.IsError)
	assert.Zero(t, gen.Calls())
}

func TestTools_TaskLifecycle(t *testing.T) {
	cs := connect(t, &session.StaticGenerator{Text: payload})

	var created taskOutput
	res := call(t, cs, "create_task", map[string]any{
		"title":    "주간 보고서",
		"priority": "low",
		"items":    []string{"초안", "검토"},
	}, &created)
	require.False(t, res.IsError)
	id := created.Task.ID
	assert.Equal(t, "미지정", created.Task.Assignee)

	var toggled taskOutput
	call(t, cs, "toggle_item", map[string]any{"id": id, "index": 1, "wait": true}, &toggled)
	assert.Equal(t, 50, toggled.Task.Progress)
	assert.False(t, toggled.Pending)

	var updated taskOutput
	call(t, cs, "update_task", map[string]any{"id": id, "status": "진행중", "wait": true}, &updated)
	assert.Equal(t, "in_progress", updated.Task.Status)

	res = call(t, cs, "update_task", map[string]any{"id": id, "status": "paused"}, nil)
	assert.True(t, res.IsError)

	var filtered listTasksOutput
	call(t, cs, "list_tasks", map[string]any{"status": "in_progress"}, &filtered)
	assert.Len(t, filtered.Tasks, 1)
	res = call(t, cs, "list_tasks", map[string]any{"status": "paused"}, nil)
	assert.True(t, res.IsError)

	var comment commentOutput
	call(t, cs, "add_comment", map[string]any{"id": id, "content": "진행 상황 공유"}, &comment)
	assert.Equal(t, "나", comment.Comment.Author)

	var thread commentsOutput
	call(t, cs, "list_comments", map[string]any{"id": id}, &thread)
	require.Len(t, thread.Comments, 1)

	var ok okOutput
	call(t, cs, "delete_task", map[string]any{"id": id}, &ok)
	assert.True(t, ok.OK)
	res = call(t, cs, "delete_task", map[string]any{"id": id}, nil)
	assert.True(t, res.IsError)
}
