package content

import (
	"context"
	"errors"
	"iter"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type celsius float64

type level int

type named struct{ name string }

func (n named) String() string { return n.name }

func TestFromKinds(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want Kind
	}{
		{"nil", nil, KindOmitted},
		{"false", false, KindOmitted},
		{"true", true, KindOmitted},
		{"omit", Omit(), KindOmitted},
		{"string", "x", KindText},
		{"empty string", "", KindText},
		{"int", 1, KindNumber},
		{"float", 1.5, KindNumber},
		{"safe", Safe("<b>"), KindSafe},
		{"slice", []any{"a"}, KindSequence},
		{"items", []Item{Text("a")}, KindSequence},
		{"strings", []string{"a"}, KindSequence},
		{"iter", iter.Seq[any](func(func(any) bool) {}), KindSequence},
		{"producer", func(*Yielder) error { return nil }, KindSequence},
		{"lazy", func() any { return "x" }, KindSequence},
		{"lazy item", func() Item { return Text("x") }, KindSequence},
		{"deferred", Resolve("x"), KindDeferred},
		{"nil deferred", (*Deferred)(nil), KindOmitted},
		{"unique", Unique(), KindUnique},
		{"effect", NewEffect("x", nil), KindEffect},
		{"stringer", named{"n"}, KindText},
		{"struct", struct{}{}, kindInvalid},
		{"map", map[string]int{}, kindInvalid},
		{"error", errors.New("x"), kindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, From(tt.v).Kind())
		})
	}
}

func TestFromUnsupported(t *testing.T) {
	item := From(struct{ X int }{1})
	assert.Equal(t, "Invalid", item.Kind().String())
	assert.ErrorIs(t, item.Err(), ErrUnsupported)
}

func TestNumberFormatting(t *testing.T) {
	tests := []struct {
		item Item
		want string
	}{
		{Number(0), "0"},
		{Number(-42), "-42"},
		{Number(uint64(math.MaxUint64)), "18446744073709551615"},
		{Number(int8(-128)), "-128"},
		{Number(1.5), "1.5"},
		{Number(-0.25), "-0.25"},
		{Number(float32(0.1)), "0.1"},
		{Number(100.0), "100"},
		{Number(1e20), "100000000000000000000"},
		{Number(1e21), "1e+21"},
		{Number(1.5e300), "1.5e+300"},
		{Number(0.000001), "0.000001"},
		{Number(1e-7), "1e-7"},
		{Number(math.NaN()), "NaN"},
		{Number(math.Inf(1)), "Infinity"},
		{Number(math.Inf(-1)), "-Infinity"},
		{Number(celsius(21.5)), "21.5"},
		{Number(level(3)), "3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, KindNumber, tt.item.Kind())
			assert.Equal(t, tt.want, tt.item.Text())
		})
	}
}

func TestSequencesRestart(t *testing.T) {
	seq := Seq("a", "b")
	for range 2 {
		items, err := Drain(seq.Open())
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "a", items[0].Text())
	}

	calls := 0
	prod := Producer(func(y *Yielder) error {
		calls++
		y.Yield("p")
		return nil
	})
	for range 2 {
		items, err := Drain(prod.Open())
		require.NoError(t, err)
		require.Len(t, items, 1)
	}
	assert.Equal(t, 2, calls)
}

func TestProducerResume(t *testing.T) {
	var got []any
	src := Producer(func(y *Yielder) error {
		got = append(got, y.Yield("a"))
		got = append(got, y.Yield(Unique()))
		got = append(got, y.Effect(NewEffect("e", 1)))
		return nil
	}).Open()
	defer src.Close()

	item, ok, err := src.Next("ignored")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindText, item.Kind())

	item, ok, err = src.Next(nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindUnique, item.Kind())

	item, ok, err = src.Next("id-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindEffect, item.Kind())
	assert.Equal(t, "e", item.Effect().Type())

	_, ok, err = src.Next(42)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []any{nil, "id-1", 42}, got)

	// Exhausted sources stay exhausted.
	_, ok, err = src.Next(nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProducerError(t *testing.T) {
	cause := errors.New("boom")
	src := Producer(func(y *Yielder) error {
		y.Yield("a")
		return cause
	}).Open()

	_, err := Drain(src)
	assert.ErrorIs(t, err, cause)
}

func TestProducerPanic(t *testing.T) {
	_, err := Drain(Producer(func(y *Yielder) error {
		panic("bad")
	}).Open())
	assert.ErrorIs(t, err, ErrProducerPanic)

	_, err = Drain(Lazy(func() any { panic("bad") }).Open())
	assert.ErrorIs(t, err, ErrProducerPanic)

	_, err = Drain(Iter(func(yield func(any) bool) { panic("bad") }).Open())
	assert.ErrorIs(t, err, ErrProducerPanic)
}

func TestProducerClose(t *testing.T) {
	unwound := make(chan struct{})
	src := Producer(func(y *Yielder) error {
		defer close(unwound)
		y.Yield("a")
		t.Error("resumed after Close")
		return nil
	}).Open()

	_, ok, err := src.Next(nil)
	require.NoError(t, err)
	require.True(t, ok)

	src.Close()
	src.Close()

	select {
	case <-unwound:
	case <-time.After(2 * time.Second):
		t.Fatal("producer goroutine was not unwound")
	}

	_, ok, err = src.Next(nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCloseBeforeStart(t *testing.T) {
	src := Producer(func(y *Yielder) error {
		t.Error("producer ran after Close")
		return nil
	}).Open()
	src.Close()

	_, ok, err := src.Next(nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIterSeqOfItems(t *testing.T) {
	seq := iter.Seq[Item](func(yield func(Item) bool) {
		_ = yield(Text("a")) && yield(Safe("<b>"))
	})
	items, err := Drain(From(seq).Open())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, KindSafe, items[1].Kind())
}

func TestDeferred(t *testing.T) {
	ctx := context.Background()

	runs := 0
	d := Defer(func(context.Context) (any, error) {
		runs++
		return "v", nil
	})

	select {
	case <-d.Done():
		t.Fatal("Defer settled before Start")
	default:
	}

	d.Start(ctx)
	d.Start(ctx)
	v, err := d.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	v, err = d.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	assert.Equal(t, 1, runs)

	cause := errors.New("x")
	_, err = Reject(cause).Wait(ctx)
	assert.ErrorIs(t, err, cause)

	_, err = Defer(func(context.Context) (any, error) { panic("p") }).Wait(ctx)
	assert.ErrorIs(t, err, ErrProducerPanic)
}

func TestZeroDeferred(t *testing.T) {
	var d Deferred
	assert.Equal(t, KindDeferred, From(&d).Kind())

	v, err := d.Wait(context.Background())
	require.NoError(t, err)
	assert.Nil(t, v)

	select {
	case <-d.Done():
	default:
		t.Fatal("zero Deferred did not settle")
	}
}

func TestWaitDoesNotBindComputation(t *testing.T) {
	release := make(chan struct{})
	d := Defer(func(ctx context.Context) (any, error) {
		select {
		case <-release:
			return "v", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	v, err := d.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestDeferredWaitCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	d := Defer(func(context.Context) (any, error) {
		<-block
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestThen(t *testing.T) {
	ctx := context.Background()

	d := Then(Resolve(2), func(v any) any { return v.(int) * 21 })
	v, err := d.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	called := false
	cause := errors.New("x")
	_, err = Then(Reject(cause), func(any) any {
		called = true
		return nil
	}).Wait(ctx)
	assert.ErrorIs(t, err, cause)
	assert.False(t, called)
}

func TestHandlers(t *testing.T) {
	h := Handlers{
		"double": func(_ context.Context, e Effect) (any, error) {
			return e.(BasicEffect).Payload.(int) * 2, nil
		},
	}

	v, err := h.HandleEffect(context.Background(), NewEffect("double", 4))
	require.NoError(t, err)
	assert.Equal(t, 8, v)

	v, err = h.HandleEffect(context.Background(), NewEffect("other", 4))
	require.NoError(t, err)
	assert.Nil(t, v)
}
