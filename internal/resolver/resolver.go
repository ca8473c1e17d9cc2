// Package resolver turns a search task into the content page it refers to.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/JakeFAU/stationsync/internal/station"
)

// Searcher runs a text search against the directory API.
type Searcher interface {
	Search(ctx context.Context, query string) (gjson.Result, error)
}

// Resolver selects one search hit per task.
type Resolver struct {
	searcher Searcher
	logger   *zap.Logger
}

// New constructs a Resolver.
func New(searcher Searcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{searcher: searcher, logger: logger}
}

// Resolve searches for task.Query and returns the page URL of the first hit
// matching the task kind. Place tasks additionally require the hit subtitle to
// equal the country filter, ignoring case. station.ErrNotFound is returned when
// nothing qualifies.
func (r *Resolver) Resolve(ctx context.Context, task station.SearchTask) (station.ContentRef, error) {
	res, err := r.searcher.Search(ctx, task.Query)
	if err != nil {
		return "", fmt.Errorf("search %s %q: %w", task.Kind, task.Query, err)
	}

	hits := res.Get("hits.hits").Array()
	r.logger.Debug("search returned hits", zap.String("query", task.Query), zap.Int("hits", len(hits)))

	for _, hit := range hits {
		source := hit.Get("_source")
		if !qualifies(task, source) {
			continue
		}
		ref := source.Get("page.url").String()
		if ref == "" {
			break
		}
		return station.ContentRef(ref), nil
	}
	return "", fmt.Errorf("%s %q: %w", task.Kind, task.Query, station.ErrNotFound)
}

func qualifies(task station.SearchTask, source gjson.Result) bool {
	kind := source.Get("type").String()
	switch task.Kind {
	case station.KindCountry:
		return kind == string(station.KindCountry)
	case station.KindPlace:
		if kind != string(station.KindPlace) || task.CountryFilter == "" {
			return false
		}
		return strings.ToLower(source.Get("page.subtitle").String()) == strings.ToLower(task.CountryFilter)
	default:
		return false
	}
}
