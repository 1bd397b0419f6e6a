package html

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/spool/pkg/content"
	"github.com/vango-dev/spool/pkg/render"
)

// Attr is a single attribute key/value pair.
//
// Value may be any content value. nil, false and values that resolve to
// omitted content drop the pair; true renders the bare key.
type Attr struct {
	Key   string
	Value any
}

// A returns an Attr.
func A(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Attributes serializes attrs in order as key="value" tokens separated by a
// single space.
func Attributes(attrs ...Attr) content.Item {
	return attributes(attrs, false)
}

// AttributeMap serializes m with keys in sorted order.
func AttributeMap(m map[string]any) content.Item {
	return Attributes(MapAttrs(m)...)
}

// Dataset serializes attrs as data attributes: each key is converted from
// camel case to kebab case and prefixed with "data-".
func Dataset(attrs ...Attr) content.Item {
	return Attributes(DataAttrs(attrs...)...)
}

// DataAttrs renames attrs to their data attribute keys.
func DataAttrs(attrs ...Attr) []Attr {
	data := make([]Attr, len(attrs))
	for i, a := range attrs {
		data[i] = Attr{Key: "data-" + KebabCase(a.Key), Value: a.Value}
	}
	return data
}

// DatasetMap serializes m as data attributes with keys in sorted order.
func DatasetMap(m map[string]any) content.Item {
	return Dataset(MapAttrs(m)...)
}

// KebabCase inserts a hyphen before every upper case letter and lowers it:
// "camelCaseKey" becomes "camel-case-key". Keys that are already kebab case
// are returned unchanged.
func KebabCase(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for _, r := range key {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MapAttrs returns the pairs of m as Attrs sorted by key.
func MapAttrs(m map[string]any) []Attr {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	attrs := make([]Attr, len(keys))
	for i, key := range keys {
		attrs[i] = Attr{Key: key, Value: m[key]}
	}
	return attrs
}

// attributes serializes attrs. With lead set, every pair is preceded by a
// space, which is how attributes follow a tag name.
func attributes(attrs []Attr, lead bool) content.Item {
	for _, a := range attrs {
		if deferredOf(a.Value) != nil {
			return content.From(content.Defer(func(ctx context.Context) (any, error) {
				resolved, err := resolveAttrs(ctx, attrs)
				if err != nil {
					return nil, err
				}
				return serialize(resolved, lead), nil
			}))
		}
	}
	return serialize(attrs, lead)
}

// resolveAttrs waits for every deferred value concurrently.
func resolveAttrs(ctx context.Context, attrs []Attr) ([]Attr, error) {
	resolved := make([]Attr, len(attrs))
	copy(resolved, attrs)

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range attrs {
		if deferredOf(a.Value) == nil {
			continue
		}
		g.Go(func() error {
			v, err := resolveValue(gctx, a.Value)
			if err != nil {
				return err
			}
			resolved[i].Value = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// resolveValue waits through chains of deferred values.
func resolveValue(ctx context.Context, v any) (any, error) {
	for {
		d := deferredOf(v)
		if d == nil {
			return v, nil
		}
		next, err := d.Wait(ctx)
		if err != nil {
			return nil, err
		}
		v = next
	}
}

func deferredOf(v any) *content.Deferred {
	switch v := v.(type) {
	case *content.Deferred:
		return v
	case content.Item:
		if v.Kind() == content.KindDeferred {
			return v.Deferred()
		}
	}
	return nil
}

func serialize(attrs []Attr, lead bool) content.Item {
	items := make([]any, 0, len(attrs))
	first := true
	for _, a := range attrs {
		token, ok := attrToken(a)
		if !ok {
			continue
		}
		if lead || !first {
			items = append(items, content.Safe(" "))
		}
		items = append(items, token)
		first = false
	}
	return content.Seq(items...)
}

// attrToken renders one pair, reporting false if it is omitted.
func attrToken(a Attr) (content.Item, bool) {
	if b, ok := a.Value.(bool); ok {
		if !b {
			return content.Item{}, false
		}
		return content.Safe(a.Key), true
	}

	item := content.From(a.Value)
	switch item.Kind() {
	case content.KindOmitted:
		return content.Item{}, false
	case content.KindText:
		return content.Safe(a.Key + `="` + render.EscapeAttr(item.Text()) + `"`), true
	case content.KindNumber, content.KindSafe:
		return content.Safe(a.Key + `="` + item.Text() + `"`), true
	default:
		return Template([]string{a.Key + `="`, `"`}, content.Quoted(item)), true
	}
}
