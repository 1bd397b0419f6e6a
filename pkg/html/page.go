package html

import (
	"github.com/vango-dev/spool/pkg/content"
)

// Page contains all data needed to render a complete HTML document.
type Page struct {
	// Lang is the language attribute for the html element.
	// Defaults to "en" if not specified.
	Lang string

	// Title is the page title.
	Title string

	// Meta contains meta tags for the page.
	Meta []MetaTag

	// StyleSheets contains paths to external stylesheets.
	StyleSheets []string

	// Styles contains inline CSS styles. They are trusted.
	Styles []string

	// Scripts contains script tags, written at the end of the body.
	Scripts []ScriptTag

	// Head is extra content for the document head.
	Head any

	// Body is the page content.
	Body any
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name      string // name attribute
	Content   string // content attribute
	Property  string // property attribute (for OpenGraph)
	HTTPEquiv string // http-equiv attribute
}

// ScriptTag represents a script element.
type ScriptTag struct {
	Src    string // src attribute
	Defer  bool   // defer attribute
	Module bool   // type="module"
	Inline string // trusted inline script content
	Data   []Attr // data attributes
}

// Document renders page as a complete HTML document.
func Document(page Page) content.Item {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}

	return content.Producer(func(y *content.Yielder) error {
		y.Yield(HTML("<!doctype html><html ${}>", Attributes(A("lang", lang))))
		y.Yield(content.Safe(`<head><meta charset="utf-8">` +
			`<meta name="viewport" content="width=device-width, initial-scale=1">`))

		if page.Title != "" {
			y.Yield(HTML("<title>${}</title>", page.Title))
		}
		for _, meta := range page.Meta {
			y.Yield(Element("meta", []Attr{
				A("name", nonEmpty(meta.Name)),
				A("property", nonEmpty(meta.Property)),
				A("http-equiv", nonEmpty(meta.HTTPEquiv)),
				A("content", nonEmpty(meta.Content)),
			}))
		}
		for _, href := range page.StyleSheets {
			y.Yield(Element("link", []Attr{A("rel", "stylesheet"), A("href", href)}))
		}
		for _, style := range page.Styles {
			y.Yield(content.Safe("<style>" + style + "</style>"))
		}
		y.Yield(page.Head)
		y.Yield(content.Safe("</head><body>"))

		y.Yield(page.Body)

		for _, script := range page.Scripts {
			y.Yield(scriptTag(script))
		}
		y.Yield(content.Safe("</body></html>"))
		return nil
	})
}

func scriptTag(script ScriptTag) content.Item {
	attrs := []Attr{A("src", nonEmpty(script.Src))}
	if script.Module {
		attrs = append(attrs, A("type", "module"))
	}
	attrs = append(attrs, A("defer", script.Defer))
	attrs = append(attrs, DataAttrs(script.Data...)...)
	return Element("script", attrs, content.Safe(script.Inline))
}

// nonEmpty omits empty strings.
func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
