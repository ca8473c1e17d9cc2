package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/stationsync/internal/clock/system"
	"github.com/JakeFAU/stationsync/internal/progress"
	"github.com/JakeFAU/stationsync/internal/publisher/memory"
	"github.com/JakeFAU/stationsync/internal/station"
)

type fakeResolver struct {
	refs map[string]station.ContentRef
	errs map[string]error
}

func (f *fakeResolver) Resolve(_ context.Context, task station.SearchTask) (station.ContentRef, error) {
	if err, ok := f.errs[task.Query]; ok {
		return "", err
	}
	return f.refs[task.Query], nil
}

type fakeExtractor struct {
	docs map[station.ContentRef][]station.Doc
}

func (f *fakeExtractor) Extract(_ context.Context, ref station.ContentRef) ([]station.Doc, error) {
	return f.docs[ref], nil
}

type fakeMerger struct {
	failFor string
	calls   [][]station.Doc
}

func (f *fakeMerger) MergeAll(_ context.Context, docs []station.Doc) (station.MergeStats, error) {
	f.calls = append(f.calls, docs)
	for _, d := range docs {
		if d.StationKey == f.failFor {
			return station.MergeStats{}, errors.New("bulk write failed")
		}
	}
	return station.MergeStats{Upserted: int64(len(docs))}, nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recordingEmitter) Emit(evt progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) stages() []progress.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]progress.Stage, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Stage)
	}
	return out
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestPipelineContinuesPastFailures(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{
		refs: map[string]station.ContentRef{"india": "/visit/india/1a2b", "kenya": "/visit/kenya/k1"},
		errs: map[string]error{
			"brazil": station.ErrNotFound,
			"chile":  errors.New("status 503: service unavailable"),
		},
	}
	extractor := &fakeExtractor{docs: map[station.ContentRef][]station.Doc{
		"/visit/india/1a2b": {{StationKey: "ST1"}, {StationKey: "ST2"}},
		"/visit/kenya/k1":   {{StationKey: "BAD"}},
	}}
	merger := &fakeMerger{failFor: "BAD"}
	pub := memory.New()
	emitter := &recordingEmitter{}
	core, logs := observer.New(zapcore.InfoLevel)

	p := New(resolver, extractor, merger, pub, emitter, fixedClock{now: time.Unix(1700000000, 0)},
		Config{Topic: "station-sync"}, zap.New(core))

	tasks := []station.SearchTask{
		{Kind: station.KindCountry, Query: "india"},
		{Kind: station.KindCountry, Query: "brazil"},
		{Kind: station.KindCountry, Query: "chile"},
		{Kind: station.KindPlace, Query: "kenya", CountryFilter: "Kenya"},
	}
	summary := p.Run(context.Background(), uuid.New(), tasks)

	require.Equal(t, 4, summary.Tasks)
	require.Equal(t, 1, summary.Synced)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 2, summary.Failed)
	require.Equal(t, station.MergeStats{Upserted: 2}, summary.Stats)
	require.Len(t, summary.Results, 4)
	require.ErrorIs(t, summary.Results[1].Err, station.ErrNotFound)
	require.Equal(t, station.OutcomeFailed, summary.Results[3].Outcome)

	// Merge is only reached for tasks that resolved and extracted.
	require.Len(t, merger.calls, 2)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "station-sync", msgs[0].Topic)
	note, ok := msgs[0].Payload.(Notification)
	require.True(t, ok)
	require.Equal(t, "india", note.Query)
	require.Equal(t, 2, note.Docs)

	require.Equal(t, []progress.Stage{
		progress.StageRunStart,
		progress.StageTaskStart, progress.StageTaskDone,
		progress.StageTaskStart, progress.StageTaskSkipped,
		progress.StageTaskStart, progress.StageTaskError,
		progress.StageTaskStart, progress.StageTaskError,
		progress.StageRunDone,
	}, emitter.stages())

	require.Equal(t, 1, logs.FilterMessage("ALL scheduled tasks complete").Len())
	require.Equal(t, 4, logs.FilterMessage("--- Starting processing for task").Len())
	require.Equal(t, 1, logs.FilterMessage("no matching search hit, skipping task").Len())
	require.Equal(t, 2, logs.FilterMessage("task failed").Len())
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) (string, error) {
	return "", errors.New("topic not found")
}

func TestPipelinePublishFailureIsOnlyLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	p := New(
		&fakeResolver{refs: map[string]station.ContentRef{"india": "/visit/india/1a2b"}},
		&fakeExtractor{docs: map[station.ContentRef][]station.Doc{"/visit/india/1a2b": {{StationKey: "ST1"}}}},
		&fakeMerger{},
		failingPublisher{},
		nil,
		nil,
		Config{Topic: "station-sync"},
		zap.New(core),
	)

	summary := p.Run(context.Background(), uuid.New(), []station.SearchTask{{Kind: station.KindCountry, Query: "india"}})
	require.Equal(t, 1, summary.Synced)
	require.Equal(t, 1, logs.FilterMessage("publish sync notification failed").Len())
}

func TestPipelineWithoutTopicDoesNotPublish(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	p := New(
		&fakeResolver{refs: map[string]station.ContentRef{"india": "/visit/india/1a2b"}},
		&fakeExtractor{},
		&fakeMerger{},
		pub, nil, nil, Config{}, nil,
	)
	summary := p.Run(context.Background(), uuid.New(), []station.SearchTask{{Kind: station.KindCountry, Query: "india"}})
	require.Equal(t, 1, summary.Synced)
	require.Zero(t, summary.Results[0].Docs)
	require.Empty(t, pub.Messages())
}

func TestPipelineStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	merger := &fakeMerger{}
	p := New(&fakeResolver{}, &fakeExtractor{}, merger, nil, nil, nil, Config{}, nil)
	summary := p.Run(ctx, uuid.New(), []station.SearchTask{{Kind: station.KindCountry, Query: "india"}})

	require.Equal(t, 1, summary.Tasks)
	require.Empty(t, summary.Results)
	require.Empty(t, merger.calls)
}

func TestPipelineDefaultsToSystemClock(t *testing.T) {
	t.Parallel()

	p := New(&fakeResolver{}, &fakeExtractor{}, &fakeMerger{}, nil, nil, nil, Config{}, nil)
	require.IsType(t, &system.Clock{}, p.clock)
	require.Equal(t, time.UTC, p.clock.Now().Location())
}

func TestPipelineEmptyTaskList(t *testing.T) {
	t.Parallel()

	emitter := &recordingEmitter{}
	p := New(&fakeResolver{}, &fakeExtractor{}, &fakeMerger{}, nil, emitter, nil, Config{}, nil)
	summary := p.Run(context.Background(), uuid.New(), nil)

	require.Zero(t, summary.Tasks)
	require.Equal(t, []progress.Stage{progress.StageRunStart, progress.StageRunDone}, emitter.stages())
}

func TestPipelineRecordsTaskSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { require.NoError(t, tp.Shutdown(context.Background())) }()

	p := New(
		&fakeResolver{
			refs: map[string]station.ContentRef{"india": "/visit/india/1a2b"},
			errs: map[string]error{"chile": errors.New("status 503")},
		},
		&fakeExtractor{},
		&fakeMerger{},
		nil, nil, nil, Config{}, nil,
	)
	p.tracer = tp.Tracer("test")

	p.Run(context.Background(), uuid.New(), []station.SearchTask{
		{Kind: station.KindCountry, Query: "india"},
		{Kind: station.KindCountry, Query: "chile"},
	})

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, "sync task", spans[0].Name())
	require.Equal(t, codes.Unset, spans[0].Status().Code)
	require.Equal(t, codes.Error, spans[1].Status().Code)
}
