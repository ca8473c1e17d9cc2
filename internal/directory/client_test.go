package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	bodies map[string]string
	err    error
	urls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("unexpected url " + url)
	}
	return []byte(body), nil
}

func TestClientURLs(t *testing.T) {
	t.Parallel()

	c, err := New(&fakeFetcher{}, Config{BaseURL: "https://example.test/api/"})
	require.NoError(t, err)
	require.Equal(t, "https://example.test/api/search?s=1&hl=en&q=new+delhi", c.SearchURL("new delhi"))
	require.Equal(t, "https://example.test/api/ara/content/page/1a2b?s=1&hl=en", c.ContentURL("1a2b"))
}

func TestClientDefaults(t *testing.T) {
	t.Parallel()

	c, err := New(&fakeFetcher{}, Config{})
	require.NoError(t, err)
	require.Equal(t, "https://radio.garden/api/search?s=1&hl=en&q=india", c.SearchURL("india"))
}

func TestClientRequiresFetcher(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{})
	require.Error(t, err)
}

func TestClientSearchDecodes(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{bodies: map[string]string{
		"https://radio.garden/api/search?s=1&hl=en&q=india": `{"hits":{"hits":[{"_source":{"type":"country"}}]}}`,
	}}
	c, err := New(f, Config{})
	require.NoError(t, err)

	res, err := c.Search(context.Background(), "india")
	require.NoError(t, err)
	require.Equal(t, "country", res.Get("hits.hits.0._source.type").String())
}

func TestClientRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{bodies: map[string]string{
		"https://radio.garden/api/ara/content/page/x?s=1&hl=en": `<html>oops</html>`,
	}}
	c, err := New(f, Config{})
	require.NoError(t, err)

	_, err = c.Content(context.Background(), "x")
	require.ErrorIs(t, err, ErrInvalidJSON)
}

func TestClientWrapsFetchError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	c, err := New(&fakeFetcher{err: boom}, Config{})
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "india")
	require.ErrorIs(t, err, boom)
}

func TestTrailingSegment(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"/listen/radio-x/ST123":  "ST123",
		"/listen/radio-x/ST123/": "ST123",
		"/visit/india/1a2b":      "1a2b",
		"ST123":                  "ST123",
		"":                       "",
		"/":                      "",
	}
	for in, want := range cases {
		require.Equal(t, want, TrailingSegment(in), "input %q", in)
	}
}
