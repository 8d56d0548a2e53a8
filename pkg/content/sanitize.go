package content

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	spacesRe    = regexp.MustCompile(`[ \t]+`)
	newlinesRe  = regexp.MustCompile(`\n{3,}`)
)

// StripHTML turns feed html (summary or content) into plain text
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	// keep paragraph breaks before tags are dropped
	s = strings.NewReplacer("</p>", "</p>\n", "<br>", "\n", "<br/>", "\n", "<br />", "\n").Replace(s)
	text := html.UnescapeString(stripPolicy.Sanitize(s))

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spacesRe.ReplaceAllString(l, " "))
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(newlinesRe.ReplaceAllString(text, "\n\n"))
}
