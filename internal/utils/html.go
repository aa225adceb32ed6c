package utils

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// StripTags removes all markup from s and collapses runs of whitespace.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	clean := html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(clean), " ")
}

// FlattenHeadings rewrites every heading in an HTML fragment as a bold
// paragraph.
func FlattenHeadings(fragment string) string {
	if fragment == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	headings := doc.Find("h1, h2, h3, h4, h5, h6")
	if headings.Length() == 0 {
		return fragment
	}
	headings.Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("<p><strong>" + html.EscapeString(s.Text()) + "</strong></p>")
	})

	// goquery wraps fragments in html/body; only the body content is wanted.
	out, err := doc.Find("body").Html()
	if err != nil {
		return fragment
	}
	return out
}
