package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/stationsync/internal/progress"
)

// LogSink writes each progress event as a debug-level structured log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Debug("progress event",
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.String("kind", evt.Kind),
			zap.String("query", evt.Query),
			zap.Int64("docs", evt.Docs),
			zap.Int64("upserted", evt.Upserted),
			zap.Int64("modified", evt.Modified),
			zap.Int64("matched", evt.Matched),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
