package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minutes/internal/comments"
	"github.com/fyrsmithlabs/minutes/internal/config"
	"github.com/fyrsmithlabs/minutes/internal/draftcache"
	"github.com/fyrsmithlabs/minutes/internal/extraction"
	"github.com/fyrsmithlabs/minutes/internal/generation"
	"github.com/fyrsmithlabs/minutes/internal/logging"
	"github.com/fyrsmithlabs/minutes/internal/persistence/aztables"
	"github.com/fyrsmithlabs/minutes/internal/persistence/sqlite"
	"github.com/fyrsmithlabs/minutes/internal/session"
	"github.com/fyrsmithlabs/minutes/internal/tasks"
	"github.com/fyrsmithlabs/minutes/internal/telemetry"
)

// app holds the wired dependencies of one process.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
	session   *session.Session
	closers   []func() error
}

// backends are the store implementations selected by configuration.
type backends struct {
	tasks    tasks.Backend
	comments comments.Backend
	drafts   draftcache.Backend
	closers  []func() error
}

// newApp loads configuration and wires the session. Call close when done.
func newApp(ctx context.Context, path string) (*app, error) {
	cfg, err := config.LoadWithFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.telemetry = tel

	b, err := openBackends(ctx, cfg)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.closers = append(a.closers, b.closers...)

	gen, err := generation.New(generationConfig(cfg))
	if err != nil {
		// Extraction reports this on every call; the task features keep working.
		logger.Error("text generation unavailable", zap.Error(err))
		gen = generation.Unavailable(err)
	}

	sess, err := session.Open(ctx, session.Deps{
		Pipeline: extraction.NewPipeline(gen, logger.Named("extraction"),
			extraction.WithTracer(tel.Tracer("github.com/fyrsmithlabs/minutes/internal/extraction"))),
		Store: tasks.NewStore(b.tasks, logger.Named("tasks"),
			tasks.WithTracer(tel.Tracer("github.com/fyrsmithlabs/minutes/internal/tasks"))),
		Comments: comments.NewThread(b.comments, logger.Named("comments")),
		Drafts:   draftcache.New(b.drafts, logger.Named("drafts")),
		Logger:   logger,
	})
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.session = sess

	logger.Info("minutes initialized",
		zap.String("version", version),
		zap.String("generation_provider", gen.Provider()),
		zap.String("store", cfg.Store.Provider),
		zap.String("drafts", cfg.Drafts.Provider),
		zap.Bool("telemetry", cfg.Observability.Enabled),
	)
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown errors", zap.Error(err))
	}
	_ = logging.Sync(a.logger)
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	var db *sqlite.DB
	openSQLite := func() (*sqlite.DB, error) {
		if db != nil {
			return db, nil
		}
		var err error
		db, err = sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		return db, nil
	}

	switch cfg.Store.Provider {
	case "aztables":
		conn := cfg.Store.AzTablesConnectionString.Value()
		if err := aztables.EnsureTables(ctx, conn, cfg.Store.TasksTable, cfg.Store.CommentsTable); err != nil {
			return nil, err
		}
		st, err := aztables.New(conn, cfg.Store.TasksTable, cfg.Store.CommentsTable)
		if err != nil {
			return nil, err
		}
		b.tasks, b.comments = st, st
	default:
		d, err := openSQLite()
		if err != nil {
			return nil, err
		}
		b.tasks, b.comments = d, d
	}

	switch cfg.Drafts.Provider {
	case "redis":
		r, err := draftcache.OpenRedis(ctx, cfg.Drafts.RedisURL, cfg.Drafts.TTL.Duration())
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, r.Close)
		b.drafts = r
	case "none":
		b.drafts = draftcache.NewMemory()
	default:
		d, err := openSQLite()
		if err != nil {
			b.close()
			return nil, err
		}
		b.drafts = d
	}
	return b, nil
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
}

func generationConfig(cfg *config.Config) generation.Config {
	g := cfg.Generation
	return generation.Config{
		Provider:          g.Provider,
		Model:             g.Model,
		APIKey:            g.APIKey.Value(),
		BaseURL:           g.BaseURL,
		Timeout:           g.Timeout.Duration(),
		RequestsPerMinute: g.RequestsPerMinute,
	}
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	t := telemetry.NewDefaultConfig()
	t.Enabled = cfg.Observability.Enabled
	t.ServiceVersion = version
	t.Insecure = cfg.Observability.Insecure
	if cfg.Observability.ServiceName != "" {
		t.ServiceName = cfg.Observability.ServiceName
	}
	if cfg.Observability.OTLPEndpoint != "" {
		t.Endpoint = cfg.Observability.OTLPEndpoint
	}
	return t
}
