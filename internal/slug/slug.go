// Package slug builds URL-safe page slugs from station display fields.
package slug

import (
	"strings"
	"unicode"
)

// Slugify lowercases text, drops everything but letters, digits, whitespace
// and hyphens, and joins the remaining words with single hyphens.
func Slugify(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	sep := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			sep = true
		}
	}
	return b.String()
}

// PageSlug joins the slugs of the four display fields with hyphens. Empty
// components are kept, so the result may contain consecutive hyphens.
func PageSlug(title, subtitle, place, country string) string {
	return Slugify(title) + "-" + Slugify(subtitle) + "-" + Slugify(place) + "-" + Slugify(country)
}
