package content

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrProducerPanic is wrapped by the error returned when a producer panics.
var ErrProducerPanic = errors.New("content: producer panicked")

// ProducerFunc is a content producing coroutine. It yields items through y
// and returns when it has nothing more to produce. A non-nil error fails the
// render that consumes it.
type ProducerFunc func(y *Yielder) error

// Producer returns a sequence produced by fn. Each traversal of the sequence
// runs fn from the start.
func Producer(fn ProducerFunc) Item {
	if fn == nil {
		return Item{}
	}
	return Item{kind: KindSequence, open: func() Source {
		return newCoroutine(fn)
	}}
}

// Yielder is the producer's side of a coroutine.
type Yielder struct {
	co *coroutine
}

// Yield suspends the producer, hands v to the consumer and returns the value
// the consumer resumes it with. The result is nil unless v is a unique
// request or an effect.
func (y *Yielder) Yield(v any) any {
	return y.co.yield(From(v))
}

// Unique yields a unique identifier request and returns the identifier that
// was written in its place.
func (y *Yielder) Unique() string {
	id, _ := y.Yield(Unique()).(string)
	return id
}

// Effect yields e and returns the effect handler's result.
func (y *Yielder) Effect(e Effect) any {
	return y.Yield(EffectItem(e))
}

// All yields every value in order, discarding resume values.
func (y *Yielder) All(values ...any) {
	for _, v := range values {
		y.Yield(v)
	}
}

type step struct {
	item Item
	err  error
	end  bool
}

// coroutine runs a ProducerFunc on its own goroutine, strictly alternating
// with the consumer: the producer only runs while Next is blocked waiting
// for its next step.
type coroutine struct {
	fn       ProducerFunc
	resume   chan any
	out      chan step
	done     chan struct{}
	started  bool
	finished bool
	closed   bool
}

func newCoroutine(fn ProducerFunc) *coroutine {
	return &coroutine{
		fn:     fn,
		resume: make(chan any),
		out:    make(chan step),
		done:   make(chan struct{}),
	}
}

// Next implements Source.
func (c *coroutine) Next(resume any) (Item, bool, error) {
	if c.finished || c.closed {
		return Item{}, false, nil
	}

	if !c.started {
		c.started = true
		go c.run()
	} else {
		c.resume <- resume
	}

	s := <-c.out
	if s.end {
		c.finished = true
		return Item{}, false, s.err
	}
	return s.item, true, nil
}

// Close implements Source. A producer suspended in Yield is unwound without
// running any more of its code other than deferred calls.
func (c *coroutine) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

func (c *coroutine) run() {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProducerPanic, r)
		}
		select {
		case c.out <- step{end: true, err: err}:
		case <-c.done:
		}
	}()

	err = c.fn(&Yielder{co: c})
}

func (c *coroutine) yield(item Item) any {
	select {
	case c.out <- step{item: item}:
	case <-c.done:
		runtime.Goexit()
	}

	select {
	case v := <-c.resume:
		return v
	case <-c.done:
		runtime.Goexit()
	}
	return nil
}
