// Package textutil normalises free text before it enters memory and splits
// long material into bounded chunks for archiving.
package textutil

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	strictPolicy = bluemonday.StrictPolicy()
)

// StripMarkup removes every HTML tag and decodes entities.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	// StrictPolicy drops the tags but leaves text HTML-escaped; tags are
	// replaced by a space first so adjacent words are not glued together.
	s = strings.ReplaceAll(s, "<", " <")
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

// Clean strips markup, collapses runs of whitespace to a single space and
// trims the result.
func Clean(s string) string {
	s = StripMarkup(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Truncate returns at most n runes of s. The boolean reports whether
// anything was cut.
func Truncate(s string, n int) (string, bool) {
	if n <= 0 {
		return "", s != ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}
