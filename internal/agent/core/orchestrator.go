package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/researcher/internal/agent/telemetry"
	"github.com/mohammad-safakhou/researcher/internal/report"
	"github.com/mohammad-safakhou/researcher/internal/retrieval"
	"github.com/mohammad-safakhou/researcher/models"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeNoSources    Outcome = "no_sources"
	OutcomeNoComparable Outcome = "no_comparable_sources"
)

const (
	NoSourcesMessage    = "No search results could be retrieved for the topic."
	NoComparableMessage = "No valid sources to compare."
)

// Result is the outcome of one RunResearch call.
type Result struct {
	RunID      uuid.UUID              `json:"run_id"`
	Topic      string                 `json:"topic"`
	Outcome    Outcome                `json:"outcome"`
	Message    string                 `json:"message,omitempty"`
	Report     models.Report          `json:"report"`
	Summaries  []models.SourceSummary `json:"summaries"`
	Comparison string                 `json:"comparison,omitempty"`
	Elapsed    time.Duration          `json:"elapsed"`
}

// Text is the plain report, or the message for early exits.
func (r Result) Text() string {
	if r.Outcome != OutcomeCompleted {
		return r.Message
	}
	return r.Report.String()
}

// Options tunes a run.
type Options struct {
	MaxResults     int
	MaxConcurrency int
	SummaryLimit   int
}

// Orchestrator drives Discover, Retrieve+Summarize per candidate, Compare
// and Format.
type Orchestrator struct {
	workers   *Workers
	retriever *retrieval.Retriever
	telemetry *telemetry.Telemetry
	logger    *zap.Logger
	opts      Options
}

var researchTracer trace.Tracer = otel.Tracer("researcher/internal/agent/core")

func NewOrchestrator(workers *Workers, retriever *retrieval.Retriever, tel *telemetry.Telemetry, logger *zap.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tel == nil {
		tel = telemetry.Nop()
	}
	if retriever == nil {
		retriever = &retrieval.Retriever{Primary: workers.Retrieve, Logger: logger}
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 3
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	return &Orchestrator{
		workers:   workers,
		retriever: retriever,
		telemetry: tel,
		logger:    logger,
		opts:      opts,
	}
}

// RunResearch runs the pipeline for topic. Degraded runs still return a
// Result; the only error is context cancellation.
func (o *Orchestrator) RunResearch(ctx context.Context, topic string) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.New(), Topic: topic}
	ctx, span := researchTracer.Start(ctx, "research.run",
		trace.WithAttributes(
			attribute.String("run.id", res.RunID.String()),
			attribute.String("research.topic", topic),
		))
	defer span.End()

	log := o.logger.With(zap.String("run_id", res.RunID.String()))
	log.Info(">>> Running research for: " + topic)

	candidates, err := telemetry.Timed(o.telemetry, "Search", func() ([]models.CandidateSource, error) {
		sctx, s := researchTracer.Start(ctx, "research.discover")
		defer s.End()
		return o.workers.Discover(sctx, topic)
	})
	if err != nil {
		return o.fail(span, res, start, err)
	}
	log.Info(fmt.Sprintf("Extracted %d search result(s).", len(candidates)))

	if len(candidates) == 0 {
		log.Info("No search results found.")
		return o.finish(span, res, start, OutcomeNoSources, NoSourcesMessage), nil
	}
	if len(candidates) > o.opts.MaxResults {
		candidates = candidates[:o.opts.MaxResults]
	}

	summaries, err := o.summarizeAll(ctx, log, topic, candidates)
	if err != nil {
		return o.fail(span, res, start, err)
	}
	res.Summaries = summaries
	if len(summaries) == 0 {
		log.Info("No summaries generated.")
		return o.finish(span, res, start, OutcomeNoComparable, NoComparableMessage), nil
	}

	log.Info("Creating comparison table...")
	comparison, err := telemetry.Timed(o.telemetry, "Compare", func() (string, error) {
		cctx, s := researchTracer.Start(ctx, "research.compare",
			trace.WithAttributes(attribute.Int("sources", len(summaries))))
		defer s.End()
		return o.workers.Compare(cctx, summaries)
	})
	if err != nil {
		return o.fail(span, res, start, err)
	}
	res.Comparison = comparison

	_ = o.telemetry.Time("Format", func() error {
		_, s := researchTracer.Start(ctx, "research.format")
		defer s.End()
		res.Report = report.Build(topic, summaries, comparison, o.opts.SummaryLimit)
		return nil
	})

	res = o.finish(span, res, start, OutcomeCompleted, "")
	log.Info(fmt.Sprintf("Total research completed in %.2f seconds", res.Elapsed.Seconds()))
	return res, nil
}

// summarizeAll processes candidates with at most MaxConcurrency in flight.
// Results are slotted by index so the output keeps candidate order.
func (o *Orchestrator) summarizeAll(ctx context.Context, log *zap.Logger, topic string, candidates []models.CandidateSource) ([]models.SourceSummary, error) {
	slots := make([]*models.SourceSummary, len(candidates))

	var g errgroup.Group
	g.SetLimit(o.opts.MaxConcurrency)
	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			break
		}
		if !cand.HasLink() {
			log.Info(fmt.Sprintf("No link for item %d, skipping.", i+1))
			continue
		}
		g.Go(func() error {
			summary, err := o.processCandidate(ctx, log, i, cand.Link, topic)
			if err != nil {
				return err
			}
			slots[i] = &summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]models.SourceSummary, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (o *Orchestrator) processCandidate(ctx context.Context, log *zap.Logger, i int, link, topic string) (models.SourceSummary, error) {
	ctx, span := researchTracer.Start(ctx, "research.source",
		trace.WithAttributes(attribute.Int("item", i+1), attribute.String("source.url", link)))
	defer span.End()
	log.Info(fmt.Sprintf("Processing item %d", i+1), zap.String("source", link))

	sw := o.telemetry.Start("Fetch")
	content := o.retriever.Retrieve(ctx, link)
	sw.Stop()
	span.SetAttributes(attribute.String("retrieval.path", string(content.Via)))
	if err := ctx.Err(); err != nil {
		return models.SourceSummary{}, err
	}

	sw = o.telemetry.Start("Summarize")
	summary, err := o.workers.Summarize(ctx, content.Content, topic)
	sw.Stop()
	if err != nil {
		span.RecordError(err)
		return models.SourceSummary{}, err
	}
	return models.SourceSummary{Source: link, Summary: summary, Retrieval: content.Via}, nil
}

func (o *Orchestrator) finish(span trace.Span, res Result, start time.Time, outcome Outcome, message string) Result {
	res.Outcome = outcome
	res.Message = message
	res.Elapsed = time.Since(start)
	span.SetAttributes(attribute.String("research.outcome", string(outcome)))
	return res
}

func (o *Orchestrator) fail(span trace.Span, res Result, start time.Time, err error) (Result, error) {
	res.Elapsed = time.Since(start)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return res, err
}
