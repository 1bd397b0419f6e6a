package render_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/spool/pkg/content"
	"github.com/vango-dev/spool/pkg/html"
	"github.com/vango-dev/spool/pkg/ids"
	"github.com/vango-dev/spool/pkg/render"
)

func renderString(t *testing.T, root any) string {
	t.Helper()
	out, err := render.Render(context.Background(), root, nil)
	require.NoError(t, err)
	return out
}

func soon(delay time.Duration, v any) *content.Deferred {
	return content.Defer(func(ctx context.Context) (any, error) {
		select {
		case <-time.After(delay):
			return v, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

func TestRenderBasics(t *testing.T) {
	tests := []struct {
		name string
		root any
		want string
	}{
		{"empty sequence", content.Seq(), ""},
		{"nil root", nil, ""},
		{"empty string", content.Seq(""), ""},
		{"only omitted", content.Seq(nil, false, content.Omit()), ""},
		{"simple strings", content.Seq("abc", "def"), "abcdef"},
		{"strings and falsey values", content.Seq("abc", nil, false, "def"), "abcdef"},
		{"true is never written", content.Seq("a", true, "b"), "ab"},
		{"unsafe text", content.Seq(`abc <>&'"`), `abc &lt;&gt;&amp;'"`},
		{"safe and text", content.Seq("abc", content.Safe("<br>"), "2 > 1", content.Safe("<br>"), "0 < 3"),
			"abc<br>2 &gt; 1<br>0 &lt; 3"},
		{"numbers", content.Seq(123, " ", 1.5, " ", int64(-7), " ", uint8(255), " ", 1e21, " ", 1e-7),
			"123 1.5 -7 255 1e+21 1e-7"},
		{"string slice", []string{"a", "<", "b"}, "a&lt;b"},
		{"root text", "x & y", "x &amp; y"},
		{"stringer", content.Seq(time.Duration(1500) * time.Millisecond), "1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderString(t, tt.root))
		})
	}
}

func TestSafeTextIsNeverReescaped(t *testing.T) {
	safe := content.Safe("<b>&amp;</b>")

	out := renderString(t, content.Seq(
		safe,
		content.Seq(content.Seq(safe)),
		content.Resolve(safe),
		content.Resolve(content.Seq(content.Resolve(safe))),
	))
	assert.Equal(t, "<b>&amp;</b><b>&amp;</b><b>&amp;</b><b>&amp;</b>", out)
}

func TestDeferredValues(t *testing.T) {
	out := renderString(t, content.Seq(
		content.Resolve("abc"),
		content.Resolve(nil),
		content.Resolve(false),
		content.Resolve(content.Omit()),
		content.Resolve("def"),
	))
	assert.Equal(t, "abcdef", out)
}

func TestOrderPreservedUnderConcurrency(t *testing.T) {
	fastDone := make(chan struct{})
	slow := content.Defer(func(ctx context.Context) (any, error) {
		<-fastDone
		return "slow", nil
	})
	fast := content.Defer(func(ctx context.Context) (any, error) {
		defer close(fastDone)
		return "B", nil
	})

	out := renderString(t, content.Seq("A", slow, fast))
	assert.Equal(t, "AslowB", out)
}

func TestDeferredStartedBeforeAwaited(t *testing.T) {
	var started sync.WaitGroup
	started.Add(3)

	barrier := func(v string) *content.Deferred {
		return content.Defer(func(ctx context.Context) (any, error) {
			started.Done()
			started.Wait()
			return v, nil
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := render.Render(ctx, content.Seq(barrier("1"), barrier("2"), barrier("3")), nil)
	require.NoError(t, err)
	assert.Equal(t, "123", out)
}

func TestGeneratorsAndProducers(t *testing.T) {
	abc := func(y *content.Yielder) error {
		y.Yield("|abc|")
		y.Yield(content.Resolve("|def|"))
		return nil
	}

	assert.Equal(t, "", renderString(t, content.Producer(func(y *content.Yielder) error { return nil })))
	assert.Equal(t, "first|abc||def|last", renderString(t, content.Seq("first", content.Producer(abc), "last")))
	assert.Equal(t, "first|abc||def|last", renderString(t, content.Seq("first", abc, "last")))

	seq := content.Iter(func(yield func(any) bool) {
		for _, s := range []string{"x", "y", "z"} {
			if !yield(s) {
				return
			}
		}
	})
	assert.Equal(t, "xyz", renderString(t, seq))

	lazy := func() content.Item { return content.Text("lazy") }
	assert.Equal(t, "lazy", renderString(t, content.Seq(lazy)))
}

func TestNestedComponents(t *testing.T) {
	div := func(c any) content.Item {
		return content.Producer(func(y *content.Yielder) error {
			y.All(content.Safe("<div>"), c, content.Safe("</div>"))
			return nil
		})
	}
	term := func(c any) content.Item {
		return content.Producer(func(y *content.Yielder) error {
			y.All(content.Safe("<dt>"), div(c), content.Safe("</dt>\n"))
			return nil
		})
	}
	definition := func(c any) content.Item {
		return content.Producer(func(y *content.Yielder) error {
			y.All(content.Safe("<dd>"), soon(time.Millisecond, c), content.Safe("</dd>\n"))
			return nil
		})
	}
	list := func(c any) content.Item {
		return content.Producer(func(y *content.Yielder) error {
			y.All(content.Safe("<dl>\n"), c, content.Safe("</dl>\n"))
			return nil
		})
	}
	example := content.Producer(func(y *content.Yielder) error {
		y.Yield(list([]any{
			term("first"),
			definition("1st"),
			term("second"),
			definition("2nd"),
		}))
		return nil
	})

	want := "<dl>\n" +
		"<dt><div>first</div></dt>\n" +
		"<dd>1st</dd>\n" +
		"<dt><div>second</div></dt>\n" +
		"<dd>2nd</dd>\n" +
		"</dl>\n"

	assert.Equal(t, want, renderString(t, example))
	assert.Equal(t, want, renderString(t, content.Seq(example)))
}

func TestDeeplyNestedDeferred(t *testing.T) {
	inner := content.Producer(func(y *content.Yielder) error {
		y.Yield(soon(time.Millisecond, content.Seq("<", content.Resolve(content.Seq("a", "b")), ">")))
		return nil
	})
	middle := content.Producer(func(y *content.Yielder) error {
		y.All("[", inner, "]")
		return nil
	})
	outer := content.Producer(func(y *content.Yielder) error {
		y.All("(", middle, ")")
		return nil
	})

	assert.Equal(t, "([&lt;ab&gt;])", renderString(t, outer))
}

func TestUniqueRequests(t *testing.T) {
	counter := ids.NewWrappedCounter("|UNIQUE", "|")
	renderer := render.NewRenderer(render.RendererConfig{IDs: counter})

	var received []string
	root := content.Producer(func(y *content.Yielder) error {
		y.Yield("first")
		received = append(received, y.Unique(), y.Unique())
		y.Yield("second")
		received = append(received, y.Unique())
		y.Yield("third")
		return nil
	})

	out, err := renderer.RenderToString(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "first|UNIQUE1||UNIQUE2|second|UNIQUE3|third", out)
	assert.Equal(t, []string{"|UNIQUE1|", "|UNIQUE2|", "|UNIQUE3|"}, received)
}

func TestUniqueIDIsEscapedInPlace(t *testing.T) {
	renderer := render.NewRenderer(render.RendererConfig{
		IDs: ids.Func(func() string { return "<id>" }),
	})

	out, err := renderer.RenderToString(context.Background(), content.Seq("a", content.Unique(), "b"))
	require.NoError(t, err)
	assert.Equal(t, "a&lt;id&gt;b", out)
}

func TestEffectResume(t *testing.T) {
	handler := content.Handlers{
		"greet": func(ctx context.Context, e content.Effect) (any, error) {
			return "hello " + e.(content.BasicEffect).Payload.(string), nil
		},
	}
	renderer := render.NewRenderer(render.RendererConfig{Handler: handler})

	root := content.Producer(func(y *content.Yielder) error {
		greeting := y.Effect(content.NewEffect("greet", "world"))
		ignored := y.Effect(content.NewEffect("unknown", nil))
		y.Yield(greeting)
		y.Yield(ignored)
		// Plain items resume with nil.
		if v := y.Yield("!"); v != nil {
			t.Errorf("expected nil resume, got %v", v)
		}
		return nil
	})

	out, err := renderer.RenderToString(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "hello world!", out)
}

func TestEffectReturningDeferred(t *testing.T) {
	release := make(chan struct{})
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, s)
	}

	handler := content.EffectHandlerFunc(func(ctx context.Context, e content.Effect) (any, error) {
		return content.Defer(func(ctx context.Context) (any, error) {
			<-release
			record("resolved")
			return 41, nil
		}), nil
	})
	renderer := render.NewRenderer(render.RendererConfig{Handler: handler})

	root := content.Producer(func(y *content.Yielder) error {
		v := y.Effect(content.NewEffect("load", nil))
		d, ok := v.(*content.Deferred)
		if !ok {
			t.Errorf("expected *content.Deferred resume value, got %T", v)
			return nil
		}
		y.Yield("before ")
		y.Yield(content.Then(d, func(v any) any {
			record("sub-traversal")
			return content.Producer(func(y *content.Yielder) error {
				y.Yield(v.(int) + 1)
				return nil
			})
		}))
		y.Yield(" after")
		record("producer done")
		close(release)
		return nil
	})

	out, err := renderer.RenderToString(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "before 42 after", out)
	assert.Equal(t, []string{"producer done", "resolved", "sub-traversal"}, events)
}

func TestRenderFailures(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name   string
		root   any
		target error
	}{
		{"rejected deferred", content.Seq("a", content.Reject(cause)), cause},
		{"nested rejected deferred", content.Seq(content.Resolve(content.Seq(content.Reject(cause)))), cause},
		{"producer error", content.Producer(func(y *content.Yielder) error {
			y.Yield("partial")
			return cause
		}), cause},
		{"producer panic", content.Producer(func(y *content.Yielder) error {
			panic("bad producer")
		}), content.ErrProducerPanic},
		{"deferred panic", content.Seq(content.Defer(func(context.Context) (any, error) {
			panic("bad deferred")
		})), content.ErrProducerPanic},
		{"lazy panic", content.Lazy(func() any { panic("bad lazy") }), content.ErrProducerPanic},
		{"unsupported value", content.Seq(struct{}{}), content.ErrUnsupported},
		{"error value", content.Seq(cause), content.ErrUnsupported},
		{"template mismatch", html.Template([]string{"a"}, 1), html.ErrPlaceholderMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := render.Render(context.Background(), tt.root, nil)
			require.Error(t, err)
			assert.Empty(t, out)
			assert.ErrorIs(t, err, render.ErrRenderFailed)
			assert.ErrorIs(t, err, tt.target)

			var re *render.RenderError
			require.ErrorAs(t, err, &re)
		})
	}
}

func TestZeroDeferredRendersNothing(t *testing.T) {
	assert.Equal(t, "ab", renderString(t, content.Seq("a", &content.Deferred{}, "b")))
	assert.Equal(t, "", renderString(t, []any{&content.Deferred{}}))
}

func TestSharedDeferredSurvivesFailedRender(t *testing.T) {
	release := make(chan struct{})
	shared := content.Defer(func(ctx context.Context) (any, error) {
		select {
		case <-release:
			return "shared", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	cause := errors.New("boom")
	_, err := render.Render(context.Background(), content.Seq(shared, content.Producer(func(*content.Yielder) error {
		return cause
	})), nil)
	require.ErrorIs(t, err, cause)

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := render.Render(ctx, content.Seq("<", shared, ">"), nil)
	require.NoError(t, err)
	assert.Equal(t, "&lt;shared&gt;", out)
}

func TestQuotedSequence(t *testing.T) {
	renderer := render.NewRenderer(render.RendererConfig{IDs: ids.NewCounter(`"id`)})

	out, err := renderer.RenderToString(context.Background(), content.Seq(
		content.Unique(),
		content.Safe(`<i title="`),
		content.Quoted(content.Seq(`a"b`, content.Unique(), content.Resolve(`c"`))),
		content.Safe(`">`),
		`"d"`,
	))
	require.NoError(t, err)
	assert.Equal(t, `"id1<i title="a&quot;b&quot;id2c&quot;">"d"`, out)
}

func TestHandlerErrorFailsRender(t *testing.T) {
	cause := errors.New("denied")
	handler := content.EffectHandlerFunc(func(context.Context, content.Effect) (any, error) {
		return nil, cause
	})

	_, err := render.Render(context.Background(), content.Seq(content.NewEffect("x", nil)), handler)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, render.ErrRenderFailed)
}

func TestAbandonedProducerIsClosed(t *testing.T) {
	cleaned := make(chan struct{})
	root := content.Producer(func(y *content.Yielder) error {
		defer close(cleaned)
		y.Yield(content.Seq(struct{}{}))
		t.Error("producer resumed after failure")
		return nil
	})

	_, err := render.Render(context.Background(), root, nil)
	require.Error(t, err)

	select {
	case <-cleaned:
	case <-time.After(2 * time.Second):
		t.Fatal("producer was not unwound")
	}
}

func TestFlattenEmitsPendingFragments(t *testing.T) {
	f := render.NewFlattener(ids.NewCounter("id"), nil)

	var (
		texts   []string
		pending int
	)
	for frag, err := range f.Flatten(context.Background(), content.Seq("a", content.Resolve("b"), content.Unique())) {
		require.NoError(t, err)
		if frag.Pending() {
			pending++
		}
		s, err := frag.Resolve(context.Background())
		require.NoError(t, err)
		texts = append(texts, s)
	}

	assert.Equal(t, 1, pending)
	assert.Equal(t, []string{"a", "b", "id1"}, texts)
}

func TestFlattenStopsEarly(t *testing.T) {
	cleaned := make(chan struct{})
	root := content.Producer(func(y *content.Yielder) error {
		defer close(cleaned)
		for {
			y.Yield("x")
		}
	})

	f := render.NewFlattener(nil, nil)
	n := 0
	for _, err := range f.Flatten(context.Background(), root) {
		require.NoError(t, err)
		n++
		if n == 3 {
			break
		}
	}

	select {
	case <-cleaned:
	case <-time.After(2 * time.Second):
		t.Fatal("producer was not unwound")
	}
}

type recordingObserver struct {
	started []string
	reports []render.Report
}

func (o *recordingObserver) RenderStart(ctx context.Context, name string) context.Context {
	o.started = append(o.started, name)
	return ctx
}

func (o *recordingObserver) RenderEnd(ctx context.Context, report render.Report) {
	o.reports = append(o.reports, report)
}

func TestObserverReport(t *testing.T) {
	obs := &recordingObserver{}
	renderer := render.NewRenderer(render.RendererConfig{
		Name:     "page",
		Observer: obs,
		IDs:      ids.NewCounter("u"),
	})

	out, err := renderer.RenderToString(context.Background(), content.Seq(
		"a", content.Resolve("b"), content.Unique(), content.NewEffect("noop", nil),
	))
	require.NoError(t, err)
	assert.Equal(t, "abu1", out)

	require.Len(t, obs.reports, 1)
	report := obs.reports[0]
	assert.Equal(t, []string{"page"}, obs.started)
	assert.Equal(t, "page", report.Name)
	assert.Equal(t, 4, report.Bytes)
	assert.NoError(t, report.Err)
	assert.Equal(t, render.Stats{Fragments: 4, Deferred: 1, Effects: 1, UniqueIDs: 1}, report.Stats)
}
