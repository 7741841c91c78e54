// Package normalize canonicalises user- and catalog-supplied strings:
// book slugs, genre names, usernames, emails and phone numbers.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	phoneNoise      = regexp.MustCompile(`[\s\-().]`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// Slug converts a title to a URL-safe slug.
// "The Left Hand of Darkness" -> "the-left-hand-of-darkness".
// "Cien años de soledad" -> "cien-anos-de-soledad".
func Slug(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = nonAlphanumeric.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// GenreName trims, collapses inner whitespace and title-cases a genre.
// "  science   fiction " -> "Science Fiction".
func GenreName(s string) string {
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(s)
}

// Genres normalises each name, drops empties and duplicates (after
// normalisation) and keeps the first limit entries in input order.
// A limit of zero or less keeps every entry.
func Genres(names []string, limit int) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		g := GenreName(n)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Username trims and lowercases a username. Uniqueness is checked on this form.
func Username(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Phone strips spaces, dashes, dots and parentheses. It reports false when the
// result is not 7-15 digits with an optional leading "+".
func Phone(s string) (string, bool) {
	p := phoneNoise.ReplaceAllString(strings.TrimSpace(s), "")
	if !phonePattern.MatchString(p) {
		return "", false
	}
	return p, true
}
