// Package markdown turns the small Markdown subset the assistant produces
// into HTML that is safe to embed.
package markdown

import (
	"regexp"
	"strings"
)

var (
	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)

	boldPattern     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern   = regexp.MustCompile(`\*(.*?)\*`)
	listItemPattern = regexp.MustCompile(`(?m)^\s*[-*]\s+(.*)`)
	listPattern     = regexp.MustCompile(`(?s)<li>.*</li>`)
)

// ToSafeHTML escapes every HTML metacharacter in md and then converts
// bold, italics and dash or star list items. Adjacent list items are
// wrapped in a single <ul>. No tag from the input survives.
func ToSafeHTML(md string) string {
	html := escaper.Replace(md)
	html = boldPattern.ReplaceAllString(html, "<strong>$1</strong>")
	html = italicPattern.ReplaceAllString(html, "<em>$1</em>")
	html = listItemPattern.ReplaceAllString(html, "<li>$1</li>")
	html = strings.ReplaceAll(html, "</li>\n<li>", "</li><li>")
	return listPattern.ReplaceAllString(html, "<ul>${0}</ul>")
}
