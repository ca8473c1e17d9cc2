// Package memory provides an in-memory document store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/stationsync/internal/station"
)

// Store keeps configuration entries, station documents and audit records in memory.
type Store struct {
	mu       sync.RWMutex
	configs  []station.ConfigEntry
	stations map[string]station.Doc
	audit    []station.AuditRecord
	closed   bool
}

// NewStore constructs a Store seeded with the given configuration entries.
func NewStore(configs ...station.ConfigEntry) *Store {
	return &Store{
		configs:  append([]station.ConfigEntry(nil), configs...),
		stations: make(map[string]station.Doc),
	}
}

// AddConfig appends a configuration entry.
func (s *Store) AddConfig(entry station.ConfigEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = append(s.configs, entry)
}

// FindConfigs returns entries whose discriminator equals configName, in insertion order.
func (s *Store) FindConfigs(_ context.Context, configName string) ([]station.ConfigEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []station.ConfigEntry
	for _, entry := range s.configs {
		if entry.ConfigName == configName {
			out = append(out, entry)
		}
	}
	return out, nil
}

// BulkUpsert replaces or inserts each document by key. A document equal to
// the stored one counts as matched but not modified.
func (s *Store) BulkUpsert(_ context.Context, ops []station.UpsertOp) (station.MergeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats station.MergeStats
	for _, op := range ops {
		existing, ok := s.stations[op.Key]
		switch {
		case !ok:
			stats.Upserted++
		case existing == op.Doc:
			stats.Matched++
		default:
			stats.Matched++
			stats.Modified++
		}
		s.stations[op.Key] = op.Doc
	}
	return stats, nil
}

// AppendAudit records an audit entry.
func (s *Store) AppendAudit(_ context.Context, rec station.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, rec)
	return nil
}

// Close marks the store closed; it is safe to call multiple times.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Station returns the document stored under key.
func (s *Store) Station(key string) (station.Doc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.stations[key]
	return doc, ok
}

// Stations returns all stored documents ordered by key.
func (s *Store) Stations() []station.Doc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]station.Doc, 0, len(s.stations))
	for _, doc := range s.stations {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StationKey < out[j].StationKey })
	return out
}

// AuditRecords returns a copy of the recorded audit entries.
func (s *Store) AuditRecords() []station.AuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]station.AuditRecord, len(s.audit))
	copy(out, s.audit)
	return out
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
