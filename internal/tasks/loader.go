// Package tasks turns search configuration documents into SearchTasks.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/stationsync/internal/station"
)

// Default discriminators and fallback query.
const (
	DefaultCountryConfigName = "radio_search"
	DefaultPlaceConfigName   = "radio_search_by_place"
	DefaultQuery             = "india"
)

// Config names the settings discriminators the loader reads.
type Config struct {
	CountryConfigName string
	PlaceConfigName   string
	DefaultQuery      string
}

// Loader reads country and place search configurations from the store.
type Loader struct {
	reader station.ConfigReader
	cfg    Config
	logger *zap.Logger
}

// NewLoader builds a Loader, filling empty config values with defaults.
func NewLoader(reader station.ConfigReader, cfg Config, logger *zap.Logger) *Loader {
	if cfg.CountryConfigName == "" {
		cfg.CountryConfigName = DefaultCountryConfigName
	}
	if cfg.PlaceConfigName == "" {
		cfg.PlaceConfigName = DefaultPlaceConfigName
	}
	if cfg.DefaultQuery == "" {
		cfg.DefaultQuery = DefaultQuery
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{reader: reader, cfg: cfg, logger: logger}
}

// Load returns country tasks followed by place tasks. When no usable entry
// exists a single default country task is returned.
func (l *Loader) Load(ctx context.Context) ([]station.SearchTask, error) {
	countries, err := l.reader.FindConfigs(ctx, l.cfg.CountryConfigName)
	if err != nil {
		return nil, fmt.Errorf("load %s configs: %w", l.cfg.CountryConfigName, err)
	}
	places, err := l.reader.FindConfigs(ctx, l.cfg.PlaceConfigName)
	if err != nil {
		return nil, fmt.Errorf("load %s configs: %w", l.cfg.PlaceConfigName, err)
	}

	tasks := make([]station.SearchTask, 0, len(countries)+len(places))
	for _, entry := range countries {
		query := strings.TrimSpace(entry.Query)
		if query == "" {
			continue
		}
		tasks = append(tasks, station.SearchTask{Kind: station.KindCountry, Query: query})
	}
	for _, entry := range places {
		query := strings.TrimSpace(entry.Query)
		country := strings.TrimSpace(entry.Country)
		if query == "" || country == "" {
			continue
		}
		tasks = append(tasks, station.SearchTask{Kind: station.KindPlace, Query: query, CountryFilter: country})
	}

	if len(tasks) == 0 {
		l.logger.Warn("no search configurations found, using default",
			zap.String("query", l.cfg.DefaultQuery),
		)
		return []station.SearchTask{{Kind: station.KindCountry, Query: l.cfg.DefaultQuery}}, nil
	}

	l.logger.Info("loaded search tasks",
		zap.Int("countries", len(countries)),
		zap.Int("places", len(places)),
		zap.Int("tasks", len(tasks)),
	)
	return tasks, nil
}
