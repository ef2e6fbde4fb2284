package utils

import (
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayName collapses whitespace and title-cases the first letter of each
// word, leaving the rest alone ("deep   work" -> "Deep Work", "HIIT" stays).
func DisplayName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// Casers are stateful; one per call.
	return cases.Title(language.English, cases.NoLower).String(s)
}

// Slug turns a display name into a stable per-user key ("Über Focus" -> "uber-focus").
func Slug(s string) string {
	return slug.Make(s)
}
