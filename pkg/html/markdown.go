package html

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"

	"github.com/vango-dev/spool/pkg/content"
)

// Markdown converts trusted markdown source to markup. Raw HTML embedded in
// src is dropped by goldmark's default renderer.
func Markdown(src string) content.Item {
	return MarkdownWith(goldmark.New(), src)
}

// MarkdownWith converts src with a configured goldmark instance.
func MarkdownWith(md goldmark.Markdown, src string) content.Item {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return content.Invalid(fmt.Errorf("html: markdown: %w", err))
	}
	return content.Safe(buf.String())
}
