package cleaner

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	blockTagRe = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/h[1-6])\s*/?>`)
	spaceRe    = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankRe    = regexp.MustCompile(`\n\s*\n+`)
)

// Cleaner turns listing HTML into plain text using Bluemonday
type Cleaner struct {
	strict *bluemonday.Policy
}

// NewStrictCleaner creates a cleaner that strips all HTML
func NewStrictCleaner() *Cleaner {
	return &Cleaner{strict: bluemonday.StrictPolicy()}
}

// CleanToText removes all HTML and returns plain text with block boundaries kept as newlines
func (c *Cleaner) CleanToText(s string) string {
	if s == "" {
		return ""
	}
	s = blockTagRe.ReplaceAllString(s, "$0\n")
	text := html.UnescapeString(c.strict.Sanitize(s))

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
