package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minutes/internal/generation"
	"github.com/fyrsmithlabs/minutes/internal/logging"
	"github.com/fyrsmithlabs/minutes/internal/prompt"
)

// Outcome labels for minutes_extractions_total.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid"
	OutcomeBusy      = "busy"
	OutcomeConfig    = "config"
	OutcomeService   = "service"
	OutcomeMalformed = "malformed"
)

// Result is the outcome of one extraction.
type Result struct {
	Summary     string       `json:"summary"`
	Drafts      []*Draft     `json:"drafts"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Model       string       `json:"model"`
}

// Pipeline runs note → prompt → generator → sanitize → assemble.
type Pipeline struct {
	gen     generation.Generator
	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *Metrics
	now     func() time.Time

	loading atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTracer sets the tracer used for extraction spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithClock overrides the clock used to date drafts.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline around gen.
func NewPipeline(gen generation.Generator, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		gen:     gen,
		logger:  logger,
		tracer:  otel.Tracer("github.com/fyrsmithlabs/minutes/internal/extraction"),
		metrics: NewMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Loading reports whether an extraction is outstanding.
func (p *Pipeline) Loading() bool {
	return p.loading.Load()
}

// Extract converts note into drafts. A blank note fails with
// *ValidationError before any network access.
func (p *Pipeline) Extract(ctx context.Context, note string) (*Result, error) {
	if strings.TrimSpace(note) == "" {
		p.metrics.ExtractionsTotal.WithLabelValues(OutcomeInvalid).Inc()
		return nil, &ValidationError{Field: "note", Reason: "must not be empty", Err: prompt.ErrEmptyNote}
	}
	if !p.loading.CompareAndSwap(false, true) {
		p.metrics.ExtractionsTotal.WithLabelValues(OutcomeBusy).Inc()
		return nil, ErrExtractionInProgress
	}
	defer p.loading.Store(false)

	ctx, span := p.tracer.Start(ctx, "extraction.Extract", trace.WithAttributes(
		attribute.String("generation.provider", p.gen.Provider()),
		attribute.String("generation.model", p.gen.Model()),
		attribute.Int("note.length", len(note)),
	))
	defer span.End()

	res, err := p.run(ctx, note)
	outcome := classify(err)
	p.metrics.ExtractionsTotal.WithLabelValues(outcome).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		p.logger.Error("extraction failed", zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("drafts.count", len(res.Drafts)),
		attribute.Int("diagnostics.count", len(res.Diagnostics)),
	)
	p.logger.Info("extraction complete",
		zap.Int("drafts", len(res.Drafts)),
		zap.Int("dropped", len(res.Diagnostics)),
		zap.String("model", res.Model),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, note string) (*Result, error) {
	instruction, err := prompt.Build(note)
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}

	start := time.Now()
	raw, err := p.gen.Generate(ctx, generation.Request{Model: p.gen.Model(), Prompt: instruction})
	p.metrics.Duration.WithLabelValues(p.gen.Provider()).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("generating: %w", err)
	}
	p.logger.Debug("generator responded", zap.Int("bytes", len(raw)))
	p.logger.Log(logging.TraceLevel, "generator response", zap.String("raw", raw))

	payload, diags, err := Sanitize(raw)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		p.logger.Warn("dropped part of generator output", zap.Int("index", d.Index), zap.String("reason", d.Reason))
	}
	p.metrics.DroppedTotal.Add(float64(len(diags)))

	drafts := Assemble(payload, p.now())
	p.metrics.DraftsTotal.Add(float64(len(drafts)))

	return &Result{
		Summary:     payload.Summary,
		Drafts:      drafts,
		Diagnostics: diags,
		Model:       p.gen.Model(),
	}, nil
}

func classify(err error) string {
	var (
		cfgErr *generation.ConfigurationError
		svcErr *generation.ServiceError
		badErr *MalformedResponseError
		valErr *ValidationError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &cfgErr):
		return OutcomeConfig
	case errors.As(err, &svcErr):
		return OutcomeService
	case errors.As(err, &badErr):
		return OutcomeMalformed
	case errors.As(err, &valErr):
		return OutcomeInvalid
	case errors.Is(err, ErrExtractionInProgress):
		return OutcomeBusy
	default:
		return OutcomeService
	}
}
