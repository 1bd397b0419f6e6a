package html

import (
	"strings"

	"github.com/vango-dev/spool/pkg/content"
)

// voidElements are elements that cannot have children and have no closing tag.
// These are self-closing in HTML5.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[strings.ToLower(tag)]
}

// Element wraps children in an element with the given attributes.
// Void elements get no closing tag and their children are dropped.
func Element(tag string, attrs []Attr, children ...any) content.Item {
	open := content.Seq(
		content.Safe("<"+tag),
		attributes(attrs, true),
		content.Safe(">"),
	)
	if IsVoidElement(tag) {
		return open
	}
	return content.Seq(open, content.Seq(children...), content.Safe("</"+tag+">"))
}
