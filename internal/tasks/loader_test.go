package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/stationsync/internal/station"
	"github.com/JakeFAU/stationsync/internal/storage/memory"
)

func TestLoaderBuildsCountryThenPlaceTasks(t *testing.T) {
	t.Parallel()

	store := memory.NewStore(
		station.ConfigEntry{ConfigName: "radio_search_by_place", Query: "Mumbai", Country: "India"},
		station.ConfigEntry{ConfigName: "radio_search", Query: "  India "},
		station.ConfigEntry{ConfigName: "radio_search", Query: "Brazil"},
		station.ConfigEntry{ConfigName: "other", Query: "ignored"},
	)
	loader := NewLoader(store, Config{}, zap.NewNop())

	got, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []station.SearchTask{
		{Kind: station.KindCountry, Query: "India"},
		{Kind: station.KindCountry, Query: "Brazil"},
		{Kind: station.KindPlace, Query: "Mumbai", CountryFilter: "India"},
	}, got)
}

func TestLoaderSkipsIncompleteEntries(t *testing.T) {
	t.Parallel()

	store := memory.NewStore(
		station.ConfigEntry{ConfigName: "radio_search", Query: ""},
		station.ConfigEntry{ConfigName: "radio_search", Query: "   "},
		station.ConfigEntry{ConfigName: "radio_search_by_place", Query: "Pune"},
		station.ConfigEntry{ConfigName: "radio_search_by_place", Query: "Goa", Country: " \t"},
		station.ConfigEntry{ConfigName: "radio_search_by_place", Query: "", Country: "India"},
		station.ConfigEntry{ConfigName: "radio_search_by_place", Query: "Delhi", Country: "India"},
	)
	got, err := NewLoader(store, Config{}, nil).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []station.SearchTask{
		{Kind: station.KindPlace, Query: "Delhi", CountryFilter: "India"},
	}, got)
}

func TestLoaderFallsBackToDefaultTask(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	loader := NewLoader(memory.NewStore(), Config{}, zap.New(core))

	got, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []station.SearchTask{{Kind: station.KindCountry, Query: "india"}}, got)
	require.Equal(t, 1, logs.FilterMessage("no search configurations found, using default").Len())
}

func TestLoaderUsesConfiguredDiscriminators(t *testing.T) {
	t.Parallel()

	store := memory.NewStore(
		station.ConfigEntry{ConfigName: "countries", Query: "Kenya"},
		station.ConfigEntry{ConfigName: "radio_search", Query: "India"},
	)
	loader := NewLoader(store, Config{CountryConfigName: "countries", PlaceConfigName: "places"}, nil)

	got, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []station.SearchTask{{Kind: station.KindCountry, Query: "Kenya"}}, got)
}

type failingReader struct{}

func (failingReader) FindConfigs(context.Context, string) ([]station.ConfigEntry, error) {
	return nil, errors.New("server selection timeout")
}

func TestLoaderReturnsStoreErrors(t *testing.T) {
	t.Parallel()

	_, err := NewLoader(failingReader{}, Config{}, nil).Load(context.Background())
	require.ErrorContains(t, err, "server selection timeout")
}
