// Package pipeline runs the search → extract → merge sequence for every task.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/stationsync/internal/clock/system"
	"github.com/JakeFAU/stationsync/internal/progress"
	"github.com/JakeFAU/stationsync/internal/station"
)

// Resolver maps a task to the content page of its selected search hit.
type Resolver interface {
	Resolve(ctx context.Context, task station.SearchTask) (station.ContentRef, error)
}

// Extractor fetches a content page and returns canonical documents.
type Extractor interface {
	Extract(ctx context.Context, ref station.ContentRef) ([]station.Doc, error)
}

// Merger upserts documents into the station collection.
type Merger interface {
	MergeAll(ctx context.Context, docs []station.Doc) (station.MergeStats, error)
}

// Config controls optional pipeline behavior.
type Config struct {
	// Topic receives one notification per synced task. Empty disables publishing.
	Topic string
	// PublishTimeout bounds each notification publish (default 10s).
	PublishTimeout time.Duration
}

// Notification is the JSON body published after a task is merged.
type Notification struct {
	RunID    string    `json:"run_id"`
	Kind     string    `json:"kind"`
	Query    string    `json:"query"`
	Country  string    `json:"country,omitempty"`
	Docs     int       `json:"docs"`
	Upserted int64     `json:"upserted"`
	Modified int64     `json:"modified"`
	Matched  int64     `json:"matched"`
	SyncedAt time.Time `json:"synced_at"`
}

// Pipeline processes tasks sequentially on the calling goroutine.
type Pipeline struct {
	resolver  Resolver
	extractor Extractor
	merger    Merger
	publisher station.Publisher
	emitter   progress.Emitter
	clock     station.Clock
	cfg       Config
	tracer    trace.Tracer
	logger    *zap.Logger
}

const tracerName = "github.com/JakeFAU/stationsync/internal/pipeline"

// New constructs a Pipeline. publisher and emitter may be nil.
func New(
	resolver Resolver,
	extractor Extractor,
	merger Merger,
	publisher station.Publisher,
	emitter progress.Emitter,
	clock station.Clock,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if clock == nil {
		clock = system.New()
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		resolver:  resolver,
		extractor: extractor,
		merger:    merger,
		publisher: publisher,
		emitter:   emitter,
		clock:     clock,
		cfg:       cfg,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

// Run processes every task in order. A failing task never stops the ones
// after it; a canceled ctx stops the loop before the next task.
func (p *Pipeline) Run(ctx context.Context, runID uuid.UUID, tasks []station.SearchTask) station.Summary {
	summary := station.Summary{Tasks: len(tasks), StartedAt: p.clock.Now()}
	rid := progress.UUIDToBytes(runID)
	p.emitter.Emit(progress.Event{RunID: rid, TS: summary.StartedAt, Stage: progress.StageRunStart})
	p.logger.Info("--- Starting processing of scheduled tasks",
		zap.String("run_id", runID.String()),
		zap.Int("tasks", len(tasks)),
	)

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("run canceled before all tasks finished",
				zap.Int("remaining", len(tasks)-len(summary.Results)),
				zap.Error(err),
			)
			break
		}
		res := p.runTask(ctx, runID, task)
		summary.Results = append(summary.Results, res)
		switch res.Outcome {
		case station.OutcomeSynced:
			summary.Synced++
			summary.Stats.Add(res.Stats)
		case station.OutcomeSkipped:
			summary.Skipped++
		case station.OutcomeFailed:
			summary.Failed++
		}
	}

	summary.Duration = p.clock.Now().Sub(summary.StartedAt)
	p.emitter.Emit(progress.Event{RunID: rid, TS: p.clock.Now(), Stage: progress.StageRunDone, Dur: summary.Duration})
	p.logger.Info("ALL scheduled tasks complete",
		zap.String("run_id", runID.String()),
		zap.Int("tasks", summary.Tasks),
		zap.Int("synced", summary.Synced),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int64("upserted", summary.Stats.Upserted),
		zap.Int64("modified", summary.Stats.Modified),
		zap.Int64("matched", summary.Stats.Matched),
		zap.Duration("duration", summary.Duration),
	)
	return summary
}

func (p *Pipeline) runTask(ctx context.Context, runID uuid.UUID, task station.SearchTask) station.TaskResult {
	ctx, span := p.tracer.Start(ctx, "sync task", trace.WithAttributes(
		attribute.String("task.kind", string(task.Kind)),
		attribute.String("task.query", task.Query),
	))
	defer span.End()

	start := p.clock.Now()
	logger := p.logger.With(
		zap.String("kind", string(task.Kind)),
		zap.String("query", task.Query),
		zap.String("country", task.CountryFilter),
	)
	logger.Info("--- Starting processing for task")
	p.emit(runID, progress.StageTaskStart, task, station.TaskResult{})

	res := station.TaskResult{Task: task}
	docs, stats, err := p.sync(ctx, task)
	res.Duration = p.clock.Now().Sub(start)
	res.Docs = len(docs)
	res.Err = err

	switch {
	case err == nil:
		res.Outcome = station.OutcomeSynced
		res.Stats = stats
		span.SetAttributes(attribute.Int("task.docs", len(docs)), attribute.Int64("task.upserted", stats.Upserted))
		logger.Info("completed task",
			zap.Int("docs", len(docs)),
			zap.Int64("upserted", stats.Upserted),
			zap.Int64("modified", stats.Modified),
			zap.Int64("matched", stats.Matched),
			zap.Duration("duration", res.Duration),
		)
		p.emit(runID, progress.StageTaskDone, task, res)
		p.notify(ctx, runID, task, res, logger)
	case errors.Is(err, station.ErrNotFound):
		res.Outcome = station.OutcomeSkipped
		span.SetAttributes(attribute.Bool("task.skipped", true))
		logger.Warn("no matching search hit, skipping task", zap.Error(err))
		p.emit(runID, progress.StageTaskSkipped, task, res)
	default:
		res.Outcome = station.OutcomeFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("task failed", zap.Error(err), zap.Duration("duration", res.Duration))
		p.emit(runID, progress.StageTaskError, task, res)
	}
	return res
}

func (p *Pipeline) sync(ctx context.Context, task station.SearchTask) ([]station.Doc, station.MergeStats, error) {
	ref, err := p.resolver.Resolve(ctx, task)
	if err != nil {
		return nil, station.MergeStats{}, fmt.Errorf("resolve: %w", err)
	}
	docs, err := p.extractor.Extract(ctx, ref)
	if err != nil {
		return nil, station.MergeStats{}, fmt.Errorf("extract %s: %w", ref, err)
	}
	stats, err := p.merger.MergeAll(ctx, docs)
	if err != nil {
		return docs, station.MergeStats{}, fmt.Errorf("merge: %w", err)
	}
	return docs, stats, nil
}

func (p *Pipeline) emit(runID uuid.UUID, stage progress.Stage, task station.SearchTask, res station.TaskResult) {
	evt := progress.Event{
		RunID:    progress.UUIDToBytes(runID),
		TS:       p.clock.Now(),
		Stage:    stage,
		Kind:     string(task.Kind),
		Query:    task.Query,
		Docs:     int64(res.Docs),
		Upserted: res.Stats.Upserted,
		Modified: res.Stats.Modified,
		Matched:  res.Stats.Matched,
	}
	if stage != progress.StageTaskStart {
		evt.Dur = res.Duration
	}
	if res.Err != nil {
		evt.Note = res.Err.Error()
	}
	p.emitter.Emit(evt)
}

func (p *Pipeline) notify(ctx context.Context, runID uuid.UUID, task station.SearchTask, res station.TaskResult, logger *zap.Logger) {
	if p.publisher == nil || p.cfg.Topic == "" {
		return
	}
	payload := Notification{
		RunID:    runID.String(),
		Kind:     string(task.Kind),
		Query:    task.Query,
		Country:  task.CountryFilter,
		Docs:     res.Docs,
		Upserted: res.Stats.Upserted,
		Modified: res.Stats.Modified,
		Matched:  res.Stats.Matched,
		SyncedAt: p.clock.Now(),
	}
	pubCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()
	id, err := p.publisher.Publish(pubCtx, p.cfg.Topic, payload)
	if err != nil {
		logger.Warn("publish sync notification failed", zap.String("topic", p.cfg.Topic), zap.Error(err))
		return
	}
	logger.Debug("sync notification published", zap.String("topic", p.cfg.Topic), zap.String("message_id", id))
}
