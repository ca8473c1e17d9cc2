package station

import (
	"context"
	"time"
)

// ConfigReader loads search configuration documents by discriminator.
type ConfigReader interface {
	FindConfigs(ctx context.Context, configName string) ([]ConfigEntry, error)
}

// StationWriter applies a batch of upserts in a single store call.
type StationWriter interface {
	BulkUpsert(ctx context.Context, ops []UpsertOp) (MergeStats, error)
}

// AuditWriter appends audit log records.
type AuditWriter interface {
	AppendAudit(ctx context.Context, rec AuditRecord) error
}

// Store is the document store the job runs against.
type Store interface {
	ConfigReader
	StationWriter
	AuditWriter
	Close(ctx context.Context) error
}

// Fetcher retrieves the raw body of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Publisher pushes sync notifications (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
