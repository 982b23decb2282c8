package inbound

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	blockBoundary = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/tr|/h[1-6]|hr)\b[^>]*>`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
	stripPolicy   = bluemonday.StrictPolicy()
)

// HTMLToText renders a message body as plain text. Raw newlines are kept
// as line breaks, block elements end a line and all markup is removed.
func HTMLToText(body string) string {
	if body == "" {
		return ""
	}
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "<br>")
	body = blockBoundary.ReplaceAllString(body, "\n")
	text := html.UnescapeString(stripPolicy.Sanitize(body))
	text = strings.ReplaceAll(text, "\u00a0", " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
