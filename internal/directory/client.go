// Package directory is a thin client for the station directory API.
package directory

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/JakeFAU/stationsync/internal/station"
)

// DefaultBaseURL is the public directory API root.
const DefaultBaseURL = "https://radio.garden/api"

// ErrInvalidJSON is returned when a response body is not a JSON document.
var ErrInvalidJSON = errors.New("response is not valid json")

// Config controls endpoint construction.
type Config struct {
	BaseURL     string
	SearchPath  string
	ContentPath string
	Language    string
}

// Client issues search and content requests against the directory API.
type Client struct {
	fetcher station.Fetcher
	cfg     Config
}

// New constructs a Client. Empty config fields fall back to the public API layout.
func New(fetcher station.Fetcher, cfg Config) (*Client, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SearchPath == "" {
		cfg.SearchPath = "/search"
	}
	if cfg.ContentPath == "" {
		cfg.ContentPath = "/ara/content/page"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{fetcher: fetcher, cfg: cfg}, nil
}

// SearchURL builds the search request URL for query.
func (c *Client) SearchURL(query string) string {
	return c.cfg.BaseURL + c.cfg.SearchPath + "?s=1&hl=" + url.QueryEscape(c.cfg.Language) + "&q=" + url.QueryEscape(query)
}

// ContentURL builds the content request URL for a page ID.
func (c *Client) ContentURL(pageID string) string {
	return c.cfg.BaseURL + strings.TrimRight(c.cfg.ContentPath, "/") + "/" + url.PathEscape(pageID) +
		"?s=1&hl=" + url.QueryEscape(c.cfg.Language)
}

// Search runs a text search and returns the decoded response.
func (c *Client) Search(ctx context.Context, query string) (gjson.Result, error) {
	return c.get(ctx, c.SearchURL(query))
}

// Content fetches the content sections of a page.
func (c *Client) Content(ctx context.Context, pageID string) (gjson.Result, error) {
	return c.get(ctx, c.ContentURL(pageID))
}

func (c *Client) get(ctx context.Context, target string) (gjson.Result, error) {
	body, err := c.fetcher.Fetch(ctx, target)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("decode %s: %w", target, ErrInvalidJSON)
	}
	return gjson.ParseBytes(body), nil
}

// TrailingSegment returns the last path segment of p, ignoring surrounding slashes.
// "/listen/radio-x/ST123" yields "ST123".
func TrailingSegment(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
