// Package forms provides form control components.
//
// Components that accept extra attributes claim them through the Attrs
// effect: whatever attributes earlier effects queued for "the next control"
// are returned by the effect handler and written into the opening tag. A
// Queue is the handler side of that protocol.
package forms

import (
	"context"
	"sync"

	"github.com/vango-dev/spool/pkg/content"
	"github.com/vango-dev/spool/pkg/html"
)

// EffectAttrs is the type of the Attrs effect.
const EffectAttrs = "attrs"

// Attrs is yielded by a component to claim its queued attributes.
// The handler resumes it with the attribute content, or nil for none.
type Attrs struct{}

// Type implements content.Effect.
func (Attrs) Type() string { return EffectAttrs }

// Button renders a button with the given label.
func Button(label any) content.Item {
	return content.Producer(func(y *content.Yielder) error {
		attrs := claim(y)
		y.Yield(html.HTML("<button type=button${}>${}</button>", attrs, label))
		return nil
	})
}

// Textbox renders a labelled text input.
func Textbox(label string) content.Item {
	return content.Producer(func(y *content.Yielder) error {
		y.Yield(html.HTML("<label>${}</label>", label))
		y.Yield(html.HTML("<input type=text>"))
		return nil
	})
}

// Output renders an output element around children.
func Output(children any) content.Item {
	return content.Producer(func(y *content.Yielder) error {
		attrs := claim(y)
		y.Yield(html.HTML("<output${}>${}</output>", attrs, children))
		return nil
	})
}

// claim yields Attrs and returns the claimed attributes preceded by a
// space, or nil.
func claim(y *content.Yielder) any {
	v := y.Effect(Attrs{})
	if content.From(v).IsOmitted() {
		return nil
	}
	return content.Seq(content.Safe(" "), v)
}

// Queue collects attributes for the next component that claims them.
// It is safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []any
}

// Push queues attribute content, such as html.Attributes or html.Dataset.
func (q *Queue) Push(attrs ...any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, attrs...)
}

// Len returns the number of queued attribute groups.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Take empties the queue and returns its contents separated by spaces.
// An empty queue returns nil.
func (q *Queue) Take() any {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	if len(items) == 0 {
		return nil
	}
	out := make([]any, 0, 2*len(items)-1)
	for i, item := range items {
		if i > 0 {
			out = append(out, content.Safe(" "))
		}
		out = append(out, item)
	}
	return content.Seq(out...)
}

// HandleEffect answers Attrs effects with Take and ignores any other effect.
func (q *Queue) HandleEffect(_ context.Context, e content.Effect) (any, error) {
	if e.Type() != EffectAttrs {
		return nil, nil
	}
	return q.Take(), nil
}
