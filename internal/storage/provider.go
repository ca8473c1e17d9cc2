// Package storage selects the document store backend used by a run.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/stationsync/internal/station"
	"github.com/JakeFAU/stationsync/internal/storage/memory"
	"github.com/JakeFAU/stationsync/internal/storage/mongo"
	"github.com/JakeFAU/stationsync/internal/storage/postgres"
)

// Supported drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config describes how to reach the document store.
type Config struct {
	Driver             string
	URI                string
	Database           string
	SettingsCollection string
	StationsCollection string
	AuditCollection    string
	ConnectTimeout     time.Duration
	EnsureSchema       bool
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg Config) (station.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverMongo, "":
		return mongo.NewStore(ctx, mongo.Config{
			URI:            cfg.URI,
			Database:       cfg.Database,
			ConnectTimeout: cfg.ConnectTimeout,
			Collections: mongo.Collections{
				Settings: cfg.SettingsCollection,
				Stations: cfg.StationsCollection,
				Audit:    cfg.AuditCollection,
			},
		})
	case DriverPostgres:
		connectCtx := ctx
		if cfg.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()
		}
		return postgres.NewStore(connectCtx, postgres.Config{
			DSN:          cfg.URI,
			EnsureSchema: cfg.EnsureSchema,
			Tables: postgres.Tables{
				Settings: cfg.SettingsCollection,
				Stations: cfg.StationsCollection,
				Audit:    cfg.AuditCollection,
			},
		})
	case DriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
