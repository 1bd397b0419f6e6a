package events_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/spool/pkg/content"
	"github.com/vango-dev/spool/pkg/events"
	"github.com/vango-dev/spool/pkg/forms"
	"github.com/vango-dev/spool/pkg/render"
	"github.com/vango-dev/spool/pkg/store"
)

func buttons() content.Item {
	return content.Producer(func(y *content.Yielder) error {
		count := events.UseState(y, "count", func() any { return 0 })
		y.Yield(events.OnClick(events.Add(1, count)))
		y.Yield(forms.Button("Some button"))
		y.Yield(forms.Output(count))
		return nil
	})
}

const button = `<button type=button ` +
	`data-click="{&quot;type&quot;:&quot;add&quot;,&quot;amount&quot;:1,&quot;name&quot;:&quot;count&quot;}" ` +
	`data-click-add-count="1">Some button</button>`

func TestClickingUpdatesState(t *testing.T) {
	ctx := context.Background()
	h := events.NewHandler(store.NewMemory(), nil)

	out, err := render.Render(ctx, buttons(), h.ForRender())
	require.NoError(t, err)
	assert.Equal(t, button+`<output>0</output>`, out)

	action, err := events.ParseAction([]byte(`{"type":"add","amount":1,"name":"count"}`))
	require.NoError(t, err)
	v, err := h.Apply(ctx, action)
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())

	out, err = render.Render(ctx, buttons(), h.ForRender())
	require.NoError(t, err)
	assert.Equal(t, button+`<output>1</output>`, out)
}

func TestStateWithoutHandler(t *testing.T) {
	out, err := render.Render(context.Background(), buttons(), nil)
	require.NoError(t, err)
	assert.Equal(t, `<button type=button>Some button</button><output>0</output>`, out)
}

func TestStateIsPersisted(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	h := events.NewHandler(s, nil)

	v, err := h.HandleEffect(ctx, events.State("label", func() any { return "hello" }))
	require.NoError(t, err)
	assert.Equal(t, events.Value{Name: "label", Current: "hello"}, v)

	raw, err := s.Get(ctx, "label")
	require.NoError(t, err)
	assert.Equal(t, `"hello"`, raw)

	// Initial is not consulted once a value exists.
	v, err = h.HandleEffect(ctx, events.State("label", func() any { return "other" }))
	require.NoError(t, err)
	assert.Equal(t, "hello", v.(events.Value).String())
}

func TestApplyErrors(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	h := events.NewHandler(s, nil)

	_, err := h.Apply(ctx, events.Action{Type: "remove", Name: "count"})
	assert.ErrorIs(t, err, events.ErrUnknownAction)

	_, err = h.Apply(ctx, events.Action{Type: events.ActionAdd, Name: "missing", Amount: 1})
	assert.ErrorIs(t, err, events.ErrNotNumeric)

	require.NoError(t, s.Set(ctx, "label", `"text"`))
	_, err = h.Apply(ctx, events.Action{Type: events.ActionAdd, Name: "label", Amount: 1})
	assert.ErrorIs(t, err, events.ErrNotNumeric)
}

func TestDecodeAction(t *testing.T) {
	a, err := events.DecodeAction(map[string]any{"type": "add", "amount": "2.5", "name": "count"})
	require.NoError(t, err)
	assert.Equal(t, events.Action{Type: "add", Amount: 2.5, Name: "count"}, a)

	_, err = events.DecodeAction(map[string]any{"type": "add", "name": "count", "extra": true})
	assert.Error(t, err)

	_, err = events.DecodeAction(map[string]any{"amount": 1})
	assert.Error(t, err)

	_, err = events.ParseAction([]byte("not json"))
	assert.Error(t, err)
}

func TestUnhandledEffectsAreIgnored(t *testing.T) {
	h := events.NewHandler(store.NewMemory(), nil)
	v, err := h.HandleEffect(context.Background(), content.NewEffect("log", "x"))
	require.NoError(t, err)
	assert.Nil(t, v)
}
