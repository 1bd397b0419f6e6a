package render

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/spool/pkg/content"
	"github.com/vango-dev/spool/pkg/ids"
)

// Fragment is one positioned unit of output text.
//
// A fragment is either immediate text or the pending resolution of a
// deferred value. Its position in the output is fixed when it is emitted,
// whatever the moment it resolves.
type Fragment struct {
	text    string
	pending *pending
}

// Pending reports whether the fragment waits on a deferred value.
func (f Fragment) Pending() bool {
	return f.pending != nil
}

// Resolve returns the text of the fragment, waiting for it if it is pending.
func (f Fragment) Resolve(ctx context.Context) (string, error) {
	if f.pending == nil {
		return f.text, nil
	}
	return f.pending.wait(ctx)
}

type pending struct {
	done chan struct{}
	text string
	err  error
}

func (p *pending) wait(ctx context.Context) (string, error) {
	select {
	case <-p.done:
		return p.text, p.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stats counts what a single render visited.
type Stats struct {
	Fragments int64
	Deferred  int64
	Effects   int64
	UniqueIDs int64
}

type counters struct {
	fragments atomic.Int64
	deferred  atomic.Int64
	effects   atomic.Int64
	uniqueIDs atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Fragments: c.fragments.Load(),
		Deferred:  c.deferred.Load(),
		Effects:   c.effects.Load(),
		UniqueIDs: c.uniqueIDs.Load(),
	}
}

// Flattener turns a content tree into an ordered sequence of fragments.
//
// A Flattener may be shared by concurrent renders. Within one render, calls
// to the effect handler and the id source are serialized, including those
// made while flattening the values of deferred fragments.
type Flattener struct {
	ids     ids.Source
	handler content.EffectHandler
	logger  *slog.Logger
}

// NewFlattener creates a Flattener. A nil src uses ids.Default and a nil
// handler ignores every effect.
func NewFlattener(src ids.Source, handler content.EffectHandler) *Flattener {
	return newFlattener(src, handler, nil)
}

func newFlattener(src ids.Source, handler content.EffectHandler, logger *slog.Logger) *Flattener {
	if handler == nil {
		handler = content.NopHandler
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Flattener{ids: src, handler: handler, logger: logger}
}

// Flatten walks root depth first and yields its fragments in emission order.
//
// Deferred values are started as they are visited and yielded as pending
// fragments. Iteration stops at the first error, which is yielded with a
// zero Fragment. Producers left suspended when iteration stops are closed.
func (f *Flattener) Flatten(ctx context.Context, root any) iter.Seq2[Fragment, error] {
	return f.flatten(ctx, root, &counters{})
}

func (f *Flattener) flatten(ctx context.Context, root any, c *counters) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		w := &walker{f: f, ctx: ctx, counters: c, mu: &sync.Mutex{}, escape: escapeHTML}
		w.root(content.From(root), yield)
	}
}

// walker holds the state of one traversal.
type walker struct {
	f        *Flattener
	ctx      context.Context
	counters *counters

	// mu is shared with the walkers of deferred fragments.
	mu *sync.Mutex

	// escape is escapeAttr inside quoted attribute values.
	escape func(string) string
}

func (w *walker) root(item content.Item, yield func(Fragment, error) bool) bool {
	if item.Kind() == content.KindSequence {
		return w.source(item.Open(), yield)
	}
	_, ok := w.visit(item, yield)
	return ok
}

// source drains src, feeding each visit's resume value into the next pull.
func (w *walker) source(src content.Source, yield func(Fragment, error) bool) bool {
	if src == nil {
		return true
	}
	defer src.Close()

	var resume any
	for {
		item, more, err := src.Next(resume)
		resume = nil
		if err != nil {
			yield(Fragment{}, err)
			return false
		}
		if !more {
			return true
		}

		r, ok := w.visit(item, yield)
		if !ok {
			return false
		}
		resume = r
	}
}

// visit handles one item and returns the value to resume its producer with.
func (w *walker) visit(item content.Item, yield func(Fragment, error) bool) (any, bool) {
	switch item.Kind() {
	case content.KindOmitted:
		return nil, true

	case content.KindText:
		return nil, w.emit(Fragment{text: w.escape(item.Text())}, yield)

	case content.KindNumber, content.KindSafe:
		return nil, w.emit(Fragment{text: item.Text()}, yield)

	case content.KindUnique:
		id := w.nextID()
		return id, w.emit(Fragment{text: w.escape(id)}, yield)

	case content.KindSequence:
		if item.IsQuoted() {
			quoted := *w
			quoted.escape = escapeAttr
			return nil, quoted.source(item.Open(), yield)
		}
		return nil, w.source(item.Open(), yield)

	case content.KindDeferred:
		return nil, w.emit(w.deferred(item.Deferred()), yield)

	case content.KindEffect:
		result, err := w.handle(item.Effect())
		if err != nil {
			yield(Fragment{}, err)
			return nil, false
		}
		return result, true

	default:
		err := item.Err()
		if err == nil {
			err = fmt.Errorf("%w: kind %s", content.ErrUnsupported, item.Kind())
		}
		yield(Fragment{}, err)
		return nil, false
	}
}

func (w *walker) emit(frag Fragment, yield func(Fragment, error) bool) bool {
	w.counters.fragments.Add(1)
	return yield(frag, nil)
}

func (w *walker) nextID() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.counters.uniqueIDs.Add(1)
	src := w.f.ids
	if src == nil {
		src = ids.Default()
	}
	return src.NextID()
}

func (w *walker) handle(e content.Effect) (any, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.counters.effects.Add(1)
	w.f.logger.Debug("effect", "type", e.Type())

	result, err := w.f.handler.HandleEffect(w.ctx, e)
	if err != nil {
		return nil, fmt.Errorf("effect %q: %w", e.Type(), err)
	}
	return result, nil
}

// deferred starts d and returns a pending fragment that resolves to the
// flattened text of its value.
func (w *walker) deferred(d *content.Deferred) Fragment {
	w.counters.deferred.Add(1)
	d.Start(context.WithoutCancel(w.ctx))

	p := &pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)

		v, err := d.Wait(w.ctx)
		if err != nil {
			p.err = err
			return
		}
		p.text, p.err = w.collect(content.Seq(v))
	}()

	return Fragment{pending: p}
}

// collect flattens item on a child walker and joins its resolved fragments.
func (w *walker) collect(item content.Item) (string, error) {
	child := &walker{f: w.f, ctx: w.ctx, counters: w.counters, mu: w.mu, escape: w.escape}

	var (
		frags []Fragment
		err   error
	)
	child.root(item, func(frag Fragment, e error) bool {
		if e != nil {
			err = e
			return false
		}
		frags = append(frags, frag)
		return true
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, frag := range frags {
		s, err := frag.Resolve(w.ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
