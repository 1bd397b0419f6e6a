package render

import "strings"

// escapeHTML escapes text for safe inclusion in HTML content.
// Quotes are left alone: they carry no meaning outside attribute values.
func escapeHTML(s string) string {
	if strings.IndexAny(s, "&<>") < 0 {
		return s
	}

	var buf strings.Builder
	buf.Grow(len(s) + 8)

	// Every escaped character is ASCII; other bytes, including invalid
	// UTF-8, pass through unchanged.
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteByte(c)
		}
	}

	return buf.String()
}

// escapeAttr escapes text for safe inclusion in HTML attribute values.
// In addition to the text entities, it escapes quotes and the whitespace
// characters that could break attribute parsing.
func escapeAttr(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		case '\n':
			buf.WriteString("&#10;")
		case '\r':
			buf.WriteString("&#13;")
		case '\t':
			buf.WriteString("&#9;")
		default:
			buf.WriteByte(c)
		}
	}

	return buf.String()
}

// EscapeText escapes &, < and > in s.
func EscapeText(s string) string {
	return escapeHTML(s)
}

// EscapeAttr escapes s for use inside a double or single quoted attribute
// value.
func EscapeAttr(s string) string {
	return escapeAttr(s)
}
