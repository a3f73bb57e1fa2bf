package session

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minutes/internal/comments"
	"github.com/fyrsmithlabs/minutes/internal/draftcache"
	"github.com/fyrsmithlabs/minutes/internal/extraction"
	"github.com/fyrsmithlabs/minutes/internal/generation"
	"github.com/fyrsmithlabs/minutes/internal/persistence/sqlite"
	"github.com/fyrsmithlabs/minutes/internal/tasks"
)

// StaticGenerator answers every request with Text or Err.
type StaticGenerator struct {
	Text  string
	Err   error
	calls atomic.Int32
}

// Generate implements generation.Generator.
func (g *StaticGenerator) Generate(context.Context, generation.Request) (string, error) {
	g.calls.Add(1)
	return g.Text, g.Err
}

// Model implements generation.Generator.
func (g *StaticGenerator) Model() string { return "static" }

// Provider implements generation.Generator.
func (g *StaticGenerator) Provider() string { return "static" }

// Calls reports how many requests were made.
func (g *StaticGenerator) Calls() int { return int(g.calls.Load()) }

// NewTestSession opens a session on an in-memory SQLite database.
func NewTestSession(tb testing.TB, gen generation.Generator, logger *zap.Logger) *Session {
	tb.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = db.Close() })

	s, err := Open(ctx, Deps{
		Pipeline: extraction.NewPipeline(gen, logger),
		Store:    tasks.NewStore(db, logger),
		Comments: comments.NewThread(db, logger),
		Drafts:   draftcache.New(db, logger),
		Logger:   logger,
	})
	require.NoError(tb, err)
	return s
}
