// Package merge writes canonical station documents into the store.
package merge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/stationsync/internal/station"
)

// Writer batches documents into keyed upserts.
type Writer struct {
	store  station.StationWriter
	logger *zap.Logger
}

// New constructs a Writer.
func New(store station.StationWriter, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, logger: logger}
}

// Ops builds one replace-or-insert operation per document, keyed by station key.
func Ops(docs []station.Doc) []station.UpsertOp {
	ops := make([]station.UpsertOp, 0, len(docs))
	for _, doc := range docs {
		ops = append(ops, station.UpsertOp{Key: doc.StationKey, Doc: doc})
	}
	return ops
}

// MergeAll submits every document as a single bulk upsert. An empty input
// makes no store call. A failed batch is reported whole; nothing is retried.
func (w *Writer) MergeAll(ctx context.Context, docs []station.Doc) (station.MergeStats, error) {
	if len(docs) == 0 {
		return station.MergeStats{}, nil
	}
	stats, err := w.store.BulkUpsert(ctx, Ops(docs))
	if err != nil {
		return station.MergeStats{}, fmt.Errorf("bulk upsert %d documents: %w", len(docs), err)
	}
	w.logger.Debug("bulk upsert applied",
		zap.Int("documents", len(docs)),
		zap.Int64("upserted", stats.Upserted),
		zap.Int64("modified", stats.Modified),
		zap.Int64("matched", stats.Matched),
	)
	return stats, nil
}
