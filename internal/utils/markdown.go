package utils

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	notesMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify, extension.TaskList),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	notesPolicy = newNotesPolicy()
)

// Notes are short household remarks: inline emphasis, lists and links.
// Images, tables and raw HTML are dropped.
func newNotesPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "del", "code", "pre", "blockquote", "ul", "ol", "li",
		"h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// RenderMarkdown converts feedback notes to sanitised HTML. Headings are
// flattened to bold paragraphs so a note cannot outweigh the listing.
func RenderMarkdown(source string) string {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := notesMarkdown.Convert([]byte(source), &buf); err != nil {
		return notesPolicy.Sanitize(source)
	}
	return FlattenHeadings(string(notesPolicy.SanitizeBytes(buf.Bytes())))
}
