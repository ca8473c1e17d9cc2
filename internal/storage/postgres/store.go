// Package postgres provides a Postgres-backed document store using JSONB columns.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/stationsync/internal/station"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Tables names the three collections the job uses.
type Tables struct {
	Settings string
	Stations string
	Audit    string
}

func (t Tables) withDefaults() Tables {
	if t.Settings == "" {
		t.Settings = "app_settings"
	}
	if t.Stations == "" {
		t.Stations = "radio_garden_channels"
	}
	if t.Audit == "" {
		t.Audit = "app_audit_log"
	}
	return t
}

func (t Tables) validate() error {
	for _, name := range []string{t.Settings, t.Stations, t.Audit} {
		if !validTableName.MatchString(name) {
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	return nil
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Tables          Tables
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	EnsureSchema    bool
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Ping(context.Context) error
	Close()
}

// Store implements station.Store on Postgres.
type Store struct {
	pool   pool
	tables Tables
	now    func() time.Time
}

// NewStore connects to Postgres, verifies the connection and optionally creates the schema.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.uri is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := NewStoreWithPool(p, cfg.Tables)
	if err != nil {
		p.Close()
		return nil, err
	}
	if cfg.EnsureSchema {
		if err := s.EnsureSchema(ctx); err != nil {
			p.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoreWithPool(p pool, tables Tables) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	tables = tables.withDefaults()
	if err := tables.validate(); err != nil {
		return nil, err
	}
	return &Store{pool: p, tables: tables, now: func() time.Time { return time.Now().UTC() }}, nil
}

// EnsureSchema creates the tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	doc JSONB NOT NULL
)`, s.tables.Settings),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	radio_garden_id TEXT PRIMARY KEY,
	doc JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.tables.Stations),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	level TEXT NOT NULL,
	module TEXT NOT NULL,
	message TEXT NOT NULL,
	line INTEGER NOT NULL,
	pathname TEXT NOT NULL,
	fields JSONB
)`, s.tables.Audit),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close(context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// FindConfigs selects settings documents by their config_name field.
func (s *Store) FindConfigs(ctx context.Context, configName string) ([]station.ConfigEntry, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE doc->>'config_name' = $1 ORDER BY id`, s.tables.Settings)
	rows, err := s.pool.Query(ctx, query, configName)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	var entries []station.ConfigEntry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan settings row: %w", err)
		}
		var entry station.ConfigEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode settings row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return entries, nil
}

// BulkUpsert writes every operation in one INSERT ... ON CONFLICT statement.
// Rows whose stored document is unchanged are left untouched, so they count
// as matched without being modified.
func (s *Store) BulkUpsert(ctx context.Context, ops []station.UpsertOp) (station.MergeStats, error) {
	keys, docs, err := encodeOps(ops)
	if err != nil {
		return station.MergeStats{}, err
	}
	if len(keys) == 0 {
		return station.MergeStats{}, nil
	}
	query := fmt.Sprintf(`
INSERT INTO %[1]s (radio_garden_id, doc, updated_at)
SELECT k, d, $3 FROM unnest($1::text[], $2::jsonb[]) AS t(k, d)
ON CONFLICT (radio_garden_id) DO UPDATE
SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
WHERE %[1]s.doc IS DISTINCT FROM EXCLUDED.doc
RETURNING (xmax = 0) AS inserted`, s.tables.Stations)

	rows, err := s.pool.Query(ctx, query, keys, docs, s.now())
	if err != nil {
		return station.MergeStats{}, fmt.Errorf("upsert stations: %w", err)
	}
	defer rows.Close()

	var stats station.MergeStats
	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return station.MergeStats{}, fmt.Errorf("scan upsert row: %w", err)
		}
		if inserted {
			stats.Upserted++
		} else {
			stats.Modified++
		}
	}
	if err := rows.Err(); err != nil {
		return station.MergeStats{}, fmt.Errorf("upsert stations: %w", err)
	}
	stats.Matched = int64(len(keys)) - stats.Upserted
	return stats, nil
}

// encodeOps collapses repeated keys (the last document wins, first position is
// kept) because one statement cannot update the same row twice.
func encodeOps(ops []station.UpsertOp) ([]string, []string, error) {
	index := make(map[string]int, len(ops))
	keys := make([]string, 0, len(ops))
	docs := make([]string, 0, len(ops))
	for _, op := range ops {
		raw, err := json.Marshal(op.Doc)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal station %s: %w", op.Key, err)
		}
		if i, ok := index[op.Key]; ok {
			docs[i] = string(raw)
			continue
		}
		index[op.Key] = len(keys)
		keys = append(keys, op.Key)
		docs = append(docs, string(raw))
	}
	return keys, docs, nil
}

// AppendAudit inserts one audit row.
func (s *Store) AppendAudit(ctx context.Context, rec station.AuditRecord) error {
	var fields []byte
	if len(rec.Fields) > 0 {
		raw, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("marshal audit fields: %w", err)
		}
		fields = raw
	}
	query := fmt.Sprintf(`
INSERT INTO %s (ts, level, module, message, line, pathname, fields)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, s.tables.Audit)
	if _, err := s.pool.Exec(ctx, query,
		rec.Timestamp,
		rec.Level,
		rec.Module,
		rec.Message,
		rec.Line,
		rec.Pathname,
		fields,
	); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}
