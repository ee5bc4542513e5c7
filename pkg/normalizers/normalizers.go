// Package normalizers provides the key normalization used for duplicate matching
package normalizers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeNIF trims a tax id. Tax ids are numeric so no case folding is applied.
func NormalizeNIF(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeName prepares a provider name for similarity scoring
// - Strip diacritics (João -> Joao)
// - Lowercase
// - Collapse runs of whitespace to one space
func NormalizeName(s string) string {
	return CollapseWhitespace(strings.ToLower(StripDiacritics(s)))
}

// StripDiacritics removes combining marks after canonical decomposition
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseWhitespace trims and replaces every whitespace run with a single space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Optional normalizes a nullable key, returning "" for nil or blank values
func Optional(s *string, fn func(string) string) string {
	if s == nil {
		return ""
	}
	return fn(*s)
}
