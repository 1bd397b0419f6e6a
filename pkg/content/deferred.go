package content

import (
	"context"
	"fmt"
	"sync"
)

// Deferred is a value that becomes available later.
//
// A Deferred is started at most once, by Start or the first Wait; every
// waiter observes the same result. The resolved value is classified with
// From, so it may itself be a sequence or another Deferred.
//
// The zero value is a Deferred that resolves to nil.
//
// The value is memoized for the lifetime of the Deferred, so a Deferred
// shared between renders yields the same result to each of them. Renderers
// start it with a context that is not cancelled when the render ends.
type Deferred struct {
	fn      func(ctx context.Context) (any, error)
	once    sync.Once
	init    sync.Once
	settled chan struct{}
	value   any
	err     error
}

// Defer returns a Deferred computed by fn on its own goroutine.
func Defer(fn func(ctx context.Context) (any, error)) *Deferred {
	return &Deferred{
		fn:      fn,
		settled: make(chan struct{}),
	}
}

// Resolve returns a Deferred already resolved to v.
func Resolve(v any) *Deferred {
	d := &Deferred{settled: make(chan struct{})}
	d.settle(v, nil)
	d.once.Do(func() {})
	return d
}

// Reject returns a Deferred already failed with err.
func Reject(err error) *Deferred {
	d := &Deferred{settled: make(chan struct{})}
	d.settle(nil, err)
	d.once.Do(func() {})
	return d
}

// Then returns a Deferred resolved to fn applied to the value of d.
// fn runs only once d has resolved successfully.
func Then(d *Deferred, fn func(v any) any) *Deferred {
	return Defer(func(ctx context.Context) (any, error) {
		v, err := d.Wait(ctx)
		if err != nil {
			return nil, err
		}
		return fn(v), nil
	})
}

// Start begins computing the value if it has not been started yet.
// ctx is passed to the computation.
func (d *Deferred) Start(ctx context.Context) {
	d.once.Do(func() {
		if d.fn == nil {
			d.settle(nil, nil)
			return
		}
		go d.compute(ctx)
	})
}

// Wait starts the computation if needed and blocks until it settles or ctx
// is done. A computation started here keeps the values of ctx but not its
// cancellation.
func (d *Deferred) Wait(ctx context.Context) (any, error) {
	d.Start(context.WithoutCancel(ctx))
	select {
	case <-d.done():
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done returns a channel closed once the value has settled.
func (d *Deferred) Done() <-chan struct{} {
	return d.done()
}

func (d *Deferred) done() chan struct{} {
	d.init.Do(func() {
		if d.settled == nil {
			d.settled = make(chan struct{})
		}
	})
	return d.settled
}

func (d *Deferred) compute(ctx context.Context) {
	var (
		v   any
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProducerPanic, r)
			v = nil
		}
		d.settle(v, err)
	}()
	v, err = d.fn(ctx)
}

func (d *Deferred) settle(v any, err error) {
	d.value = v
	d.err = err
	close(d.done())
}
