// Package extractor flattens directory content pages into station documents.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/JakeFAU/stationsync/internal/directory"
	"github.com/JakeFAU/stationsync/internal/identity"
	"github.com/JakeFAU/stationsync/internal/slug"
	"github.com/JakeFAU/stationsync/internal/station"
)

// Default URL templates. {key} is replaced with the station key and {id}
// with the derived display identifier.
const (
	DefaultStreamURLTemplate = "https://radio.garden/api/ara/content/listen/{key}/channel.mp3"
	DefaultLogoURLTemplate   = "https://picsum.photos/150/150?random={id}"
)

const channelType = "channel"

// ContentSource fetches the content sections of a directory page.
type ContentSource interface {
	Content(ctx context.Context, pageID string) (gjson.Result, error)
}

// Config controls document construction.
type Config struct {
	StreamURLTemplate string
	LogoURLTemplate   string
}

// Extractor converts content pages into canonical documents.
type Extractor struct {
	source ContentSource
	cfg    Config
	logger *zap.Logger
}

// New constructs an Extractor.
func New(source ContentSource, cfg Config, logger *zap.Logger) *Extractor {
	if cfg.StreamURLTemplate == "" {
		cfg.StreamURLTemplate = DefaultStreamURLTemplate
	}
	if cfg.LogoURLTemplate == "" {
		cfg.LogoURLTemplate = DefaultLogoURLTemplate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{source: source, cfg: cfg, logger: logger}
}

// Extract fetches the page behind ref and returns one document per channel
// item. Items without a station key are skipped silently; malformed items are
// logged and skipped without affecting their siblings.
func (e *Extractor) Extract(ctx context.Context, ref station.ContentRef) ([]station.Doc, error) {
	pageID := directory.TrailingSegment(string(ref))
	if pageID == "" {
		return nil, fmt.Errorf("content ref %q has no page id", ref)
	}
	res, err := e.source.Content(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("fetch content %s: %w", pageID, err)
	}

	var docs []station.Doc
	sections := res.Get("data.content")
	if sections.Exists() && !sections.IsArray() {
		e.logger.Warn("content sections are not a list", zap.String("page_id", pageID))
		return nil, nil
	}
	for si, section := range sections.Array() {
		items := section.Get("items")
		if !items.Exists() {
			continue
		}
		if !items.IsArray() {
			e.logger.Warn("section items are not a list", zap.String("page_id", pageID), zap.Int("section", si))
			continue
		}
		for ii, item := range items.Array() {
			page := item.Get("page")
			if !page.IsObject() || page.Get("type").String() != channelType {
				continue
			}
			doc, ok, err := e.Canonicalize(page)
			if err != nil {
				e.logger.Error("error parsing content item",
					zap.String("page_id", pageID),
					zap.Int("section", si),
					zap.Int("item", ii),
					zap.Error(err),
				)
				continue
			}
			if !ok {
				continue
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Canonicalize builds the document for one channel page object. ok is false
// when the page carries no usable station key.
func (e *Extractor) Canonicalize(page gjson.Result) (station.Doc, bool, error) {
	rawURL := page.Get("url")
	if rawURL.Type != gjson.String {
		return station.Doc{}, false, nil
	}
	key := directory.TrailingSegment(rawURL.Str)
	if key == "" {
		return station.Doc{}, false, nil
	}

	title, err := textField(page, "title")
	if err != nil {
		return station.Doc{}, false, err
	}
	subtitle, err := textField(page, "subtitle")
	if err != nil {
		return station.Doc{}, false, err
	}
	place, err := nestedTitle(page, "place")
	if err != nil {
		return station.Doc{}, false, err
	}
	country, err := nestedTitle(page, "country")
	if err != nil {
		return station.Doc{}, false, err
	}

	id := identity.Derive(key)
	return station.Doc{
		InternalID: id,
		Name:       title,
		StreamURL:  expand(e.cfg.StreamURLTemplate, key, id),
		LogoURL:    expand(e.cfg.LogoURLTemplate, key, id),
		Language:   subtitle,
		Genre:      subtitle,
		State:      place,
		Country:    country,
		StationKey: key,
		Page:       slug.PageSlug(title, subtitle, place, country),
	}, true, nil
}

func textField(obj gjson.Result, name string) (string, error) {
	v := obj.Get(name)
	switch v.Type {
	case gjson.String:
		return v.Str, nil
	case gjson.Null:
		return "", nil
	default:
		return "", fmt.Errorf("%w: field %q is %s", station.ErrMalformedItem, name, v.Type)
	}
}

func nestedTitle(obj gjson.Result, name string) (string, error) {
	v := obj.Get(name)
	if !v.Exists() || v.Type == gjson.Null {
		return "", nil
	}
	if !v.IsObject() {
		return "", fmt.Errorf("%w: field %q is not an object", station.ErrMalformedItem, name)
	}
	return textField(v, "title")
}

func expand(tmpl, key, id string) string {
	return strings.NewReplacer("{key}", key, "{id}", id).Replace(tmpl)
}
