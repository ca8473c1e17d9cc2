// Package mongo stores settings, stations and audit records in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/JakeFAU/stationsync/internal/station"
)

// Collections names the collections inside the database.
type Collections struct {
	Settings string
	Stations string
	Audit    string
}

func (c Collections) withDefaults() Collections {
	if c.Settings == "" {
		c.Settings = "app_settings"
	}
	if c.Stations == "" {
		c.Stations = "radio_garden_channels"
	}
	if c.Audit == "" {
		c.Audit = "app_audit_log"
	}
	return c
}

// Config holds connection settings.
type Config struct {
	URI            string
	Database       string
	Collections    Collections
	ConnectTimeout time.Duration
}

// Store implements station.Store on MongoDB.
type Store struct {
	client   *mongo.Client
	settings *mongo.Collection
	stations *mongo.Collection
	audit    *mongo.Collection
}

// NewStore connects and pings the primary. A failure here is fatal for the run.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("store.uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("store.database is required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := NewStoreWithDatabase(client.Database(cfg.Database), cfg.Collections)
	s.client = client
	return s, nil
}

// NewStoreWithDatabase wraps an already connected database handle.
func NewStoreWithDatabase(db *mongo.Database, cols Collections) *Store {
	cols = cols.withDefaults()
	return &Store{
		settings: db.Collection(cols.Settings),
		stations: db.Collection(cols.Stations),
		audit:    db.Collection(cols.Audit),
	}
}

// Close disconnects the client when the store owns it.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

// FindConfigs returns every settings document whose config_name equals configName.
func (s *Store) FindConfigs(ctx context.Context, configName string) ([]station.ConfigEntry, error) {
	cur, err := s.settings.Find(ctx, bson.M{"config_name": configName})
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}
	var entries []station.ConfigEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return entries, nil
}

// BulkUpsert issues one ordered bulk write of replace-with-upsert operations.
// Ops apply in slice order, so a repeated key ends with its last document.
func (s *Store) BulkUpsert(ctx context.Context, ops []station.UpsertOp) (station.MergeStats, error) {
	if len(ops) == 0 {
		return station.MergeStats{}, nil
	}
	res, err := s.stations.BulkWrite(ctx, buildModels(ops), options.BulkWrite().SetOrdered(true))
	if err != nil {
		return station.MergeStats{}, fmt.Errorf("bulk write stations: %w", err)
	}
	return station.MergeStats{
		Upserted: res.UpsertedCount,
		Modified: res.ModifiedCount,
		Matched:  res.MatchedCount,
	}, nil
}

func buildModels(ops []station.UpsertOp) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: station.KeyField, Value: op.Key}}).
			SetReplacement(op.Doc).
			SetUpsert(true))
	}
	return models
}

// AppendAudit inserts one audit document.
func (s *Store) AppendAudit(ctx context.Context, rec station.AuditRecord) error {
	if _, err := s.audit.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}
