// Package station defines core types shared across the sync pipeline.
package station

import (
	"errors"
	"time"
)

// TaskKind selects which search hit type a task resolves to.
type TaskKind string

// Supported task kinds.
const (
	KindCountry TaskKind = "country"
	KindPlace   TaskKind = "place"
)

// ErrNotFound signals that no search hit qualified for a task.
var ErrNotFound = errors.New("no matching search hit")

// ErrMalformedItem marks a content item whose structure could not be read.
var ErrMalformedItem = errors.New("malformed content item")

// SearchTask is one unit of work loaded from configuration.
type SearchTask struct {
	Kind  TaskKind
	Query string
	// CountryFilter is only set for place tasks and is compared case-insensitively
	// against the search hit subtitle.
	CountryFilter string
}

// ContentRef is the page locator taken from the selected search hit, e.g. "/visit/india/1a2b".
type ContentRef string

// Doc is the canonical station document persisted in the station collection.
// Field names match the documents already stored by earlier versions of the job.
type Doc struct {
	InternalID string `json:"id" bson:"id"`
	Name       string `json:"name" bson:"name"`
	StreamURL  string `json:"streamUrl" bson:"streamUrl"`
	LogoURL    string `json:"logoUrl" bson:"logoUrl"`
	Language   string `json:"language" bson:"language"`
	Genre      string `json:"genre" bson:"genre"`
	State      string `json:"state" bson:"state"`
	Country    string `json:"country" bson:"country"`
	StationKey string `json:"radio_garden_id" bson:"radio_garden_id"`
	Page       string `json:"page" bson:"page"`
}

// KeyField is the stored field name of the merge key.
const KeyField = "radio_garden_id"

// UpsertOp replaces the document whose key equals Key, inserting it when absent.
type UpsertOp struct {
	Key string
	Doc Doc
}

// MergeStats reports the outcome of one bulk upsert.
type MergeStats struct {
	Upserted int64 `json:"upserted"`
	Modified int64 `json:"modified"`
	Matched  int64 `json:"matched"`
}

// Add accumulates other into s.
func (s *MergeStats) Add(other MergeStats) {
	s.Upserted += other.Upserted
	s.Modified += other.Modified
	s.Matched += other.Matched
}

// ConfigEntry is one search configuration document.
type ConfigEntry struct {
	ConfigName string `json:"config_name" bson:"config_name"`
	Query      string `json:"query" bson:"query"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
}

// AuditRecord is appended to the audit collection for every log entry.
type AuditRecord struct {
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	Level     string         `json:"level" bson:"level"`
	Message   string         `json:"message" bson:"message"`
	Module    string         `json:"module" bson:"module"`
	Line      int            `json:"line" bson:"line"`
	Pathname  string         `json:"pathname" bson:"pathname"`
	Fields    map[string]any `json:"fields,omitempty" bson:"fields,omitempty"`
}

// TaskOutcome classifies how a task finished.
type TaskOutcome string

// Task outcomes reported by the pipeline.
const (
	OutcomeSynced  TaskOutcome = "synced"
	OutcomeSkipped TaskOutcome = "skipped"
	OutcomeFailed  TaskOutcome = "failed"
)

// TaskResult describes a single processed task.
type TaskResult struct {
	Task     SearchTask
	Outcome  TaskOutcome
	Docs     int
	Stats    MergeStats
	Err      error
	Duration time.Duration
}

// Summary aggregates a whole run.
type Summary struct {
	Tasks     int
	Synced    int
	Skipped   int
	Failed    int
	Stats     MergeStats
	Results   []TaskResult
	StartedAt time.Time
	Duration  time.Duration
}
