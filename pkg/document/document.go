// Package document loads pages described in YAML and turns them into
// content trees.
//
// A document names its head fields and lists body nodes:
//
//	title: Counter
//	stylesheets: [/app.css]
//	body:
//	  - h1: Counter
//	  - markdown: |
//	      Click the *button*.
//	  - button: Increment
//	    click: {type: add, amount: 1, name: count}
//	  - output: count
//	    initial: 0
//	  - tag: a
//	    attrs: {href: /about}
//	    data: {trackId: nav}
//	    children: [About]
//
// Scalars are text. A map with a single key that is not a node field is a
// shorthand element: {h1: Counter} is <h1>Counter</h1>.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/spool/pkg/content"
	"github.com/vango-dev/spool/pkg/events"
	"github.com/vango-dev/spool/pkg/forms"
	"github.com/vango-dev/spool/pkg/html"
)

// ErrInvalid is wrapped by every error describing a malformed document.
var ErrInvalid = errors.New("document: invalid")

// Document is a page loaded from YAML.
type Document struct {
	Title       string            `mapstructure:"title"`
	Lang        string            `mapstructure:"lang"`
	Meta        map[string]string `mapstructure:"meta"`
	StyleSheets []string          `mapstructure:"stylesheets"`
	Styles      []string          `mapstructure:"styles"`
	Scripts     []string          `mapstructure:"scripts"`
	Body        []any             `mapstructure:"body"`

	body content.Item
}

// Node is one body node.
type Node struct {
	Tag      string         `mapstructure:"tag"`
	Attrs    map[string]any `mapstructure:"attrs"`
	Data     map[string]any `mapstructure:"data"`
	Children []any          `mapstructure:"children"`

	Text     string `mapstructure:"text"`
	Raw      string `mapstructure:"raw"`
	Markdown string `mapstructure:"markdown"`
	Unique   bool   `mapstructure:"unique"`

	Button  string         `mapstructure:"button"`
	Click   *events.Action `mapstructure:"click"`
	Textbox string         `mapstructure:"textbox"`
	Output  string         `mapstructure:"output"`
	Initial any            `mapstructure:"initial"`
}

var nodeFields = map[string]bool{
	"tag": true, "attrs": true, "data": true, "children": true,
	"text": true, "raw": true, "markdown": true, "unique": true,
	"button": true, "click": true, "textbox": true, "output": true, "initial": true,
}

// Load reads a document from path. Files ending in .md are wrapped as a
// markdown body titled after the file name; anything else is parsed as YAML.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".md") {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return &Document{Title: name, body: html.Markdown(string(data))}, nil
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a YAML document and builds its body.
func Parse(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", ErrInvalid, err)
	}

	var doc Document
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &doc,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	body, err := convertList(doc.Body, "body")
	if err != nil {
		return nil, err
	}
	doc.body = body
	return &doc, nil
}

// Content returns the body content.
func (d *Document) Content() content.Item {
	return d.body
}

// Page returns the full page of the document.
func (d *Document) Page() html.Page {
	page := html.Page{
		Lang:        d.Lang,
		Title:       d.Title,
		StyleSheets: d.StyleSheets,
		Styles:      d.Styles,
		Body:        d.body,
	}

	names := make([]string, 0, len(d.Meta))
	for name := range d.Meta {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		page.Meta = append(page.Meta, html.MetaTag{Name: name, Content: d.Meta[name]})
	}
	for _, src := range d.Scripts {
		page.Scripts = append(page.Scripts, html.ScriptTag{Src: src, Defer: true})
	}
	return page
}

// Render returns the full page document.
func (d *Document) Render() content.Item {
	return html.Document(d.Page())
}

func convertList(values []any, path string) (content.Item, error) {
	items := make([]any, len(values))
	for i, v := range values {
		item, err := convert(v, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return content.Item{}, err
		}
		items[i] = item
	}
	return content.Seq(items...), nil
}

func convert(v any, path string) (content.Item, error) {
	switch v := v.(type) {
	case nil:
		return content.Omit(), nil
	case string, bool, int, int64, uint64, float64:
		return content.From(v), nil
	case []any:
		return convertList(v, path)
	case map[string]any:
		return convertNode(v, path)
	default:
		return content.Item{}, fmt.Errorf("%w: %s: unsupported %T", ErrInvalid, path, v)
	}
}

func convertNode(m map[string]any, path string) (content.Item, error) {
	if len(m) == 1 {
		for key, value := range m {
			if !nodeFields[key] {
				children, ok := value.([]any)
				if !ok {
					children = []any{value}
				}
				m = map[string]any{"tag": key, "children": children}
			}
		}
	}

	var n Node
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &n,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return content.Item{}, err
	}
	if err := dec.Decode(m); err != nil {
		return content.Item{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return n.item(path)
}

func (n Node) item(path string) (content.Item, error) {
	switch {
	case n.Tag != "":
		children, err := convertList(n.Children, path+"."+n.Tag)
		if err != nil {
			return content.Item{}, err
		}
		attrs := append(html.MapAttrs(n.Attrs), html.DataAttrs(html.MapAttrs(n.Data)...)...)
		return html.Element(n.Tag, attrs, children), nil

	case n.Markdown != "":
		return html.Markdown(n.Markdown), nil

	case n.Raw != "":
		return html.Raw(n.Raw), nil

	case n.Text != "":
		return content.Text(n.Text), nil

	case n.Unique:
		return content.Unique(), nil

	case n.Button != "":
		label, click := n.Button, n.Click
		return content.Producer(func(y *content.Yielder) error {
			if click != nil {
				y.Yield(events.OnClick(*click))
			}
			y.Yield(forms.Button(label))
			return nil
		}), nil

	case n.Textbox != "":
		return forms.Textbox(n.Textbox), nil

	case n.Output != "":
		name, initial := n.Output, n.Initial
		return content.Producer(func(y *content.Yielder) error {
			v := events.UseState(y, name, func() any { return initial })
			y.Yield(forms.Output(v))
			return nil
		}), nil

	default:
		return content.Item{}, fmt.Errorf("%w: %s: empty node", ErrInvalid, path)
	}
}
