package html

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vango-dev/spool/pkg/content"
)

// Placeholder marks an interpolation point in the source passed to HTML.
const Placeholder = "${}"

// ErrPlaceholderMismatch is wrapped by the error of a template whose literal
// parts do not match its values.
var ErrPlaceholderMismatch = errors.New("html: template parts do not match values")

// Template alternates safe literal parts with interpolated values:
// parts[0], values[0], parts[1], ... parts[n]. There must be exactly one more
// part than values; otherwise the returned item fails the render.
func Template(parts []string, values ...any) content.Item {
	if len(parts) != len(values)+1 {
		return content.Invalid(fmt.Errorf("%w: %d parts, %d values",
			ErrPlaceholderMismatch, len(parts), len(values)))
	}

	items := make([]any, 0, len(parts)+len(values))
	for i, part := range parts {
		if part != "" {
			items = append(items, content.Safe(part))
		}
		if i < len(values) {
			items = append(items, values[i])
		}
	}
	return content.Seq(items...)
}

// HTML splits src on Placeholder and interpolates values in order.
func HTML(src string, values ...any) content.Item {
	return Template(strings.Split(src, Placeholder), values...)
}

// Raw marks s as trusted markup.
func Raw(s string) content.Item {
	return content.Safe(s)
}
