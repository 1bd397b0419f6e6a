package content

import "fmt"

// Source is a pull-based traversal of a sequence that can feed a value back
// into whatever produced the previous item.
//
// Next returns the next item, false once the sequence is exhausted, or an
// error if producing the item failed. resume is delivered to the producer as
// the result of the suspension that yielded the previous item; the resume
// value of the first call is discarded.
//
// Close releases any resources held by an unfinished traversal. It is safe
// to call Close more than once and after the sequence is exhausted.
type Source interface {
	Next(resume any) (Item, bool, error)
	Close()
}

// sliceSource walks an eager slice of values.
type sliceSource struct {
	values []any
	pos    int
}

func (s *sliceSource) Next(any) (Item, bool, error) {
	if s.pos >= len(s.values) {
		return Item{}, false, nil
	}
	v := s.values[s.pos]
	s.pos++
	return From(v), true, nil
}

func (s *sliceSource) Close() {
	s.pos = len(s.values)
}

// pullSource adapts an iter.Pull pair.
type pullSource struct {
	next func() (any, bool)
	stop func()
}

func (s *pullSource) Next(any) (item Item, more bool, err error) {
	defer recoverProducer(&err)

	v, ok := s.next()
	if !ok {
		return Item{}, false, nil
	}
	return From(v), true, nil
}

func (s *pullSource) Close() {
	s.stop()
}

// lazySource computes its single value on first pull.
type lazySource struct {
	fn   func() any
	done bool
}

func (s *lazySource) Next(any) (item Item, more bool, err error) {
	defer recoverProducer(&err)

	if s.done {
		return Item{}, false, nil
	}
	s.done = true
	return From(s.fn()), true, nil
}

func (s *lazySource) Close() {
	s.done = true
}

// recoverProducer turns a panic raised while producing an item into an
// error wrapping ErrProducerPanic.
func recoverProducer(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrProducerPanic, r)
	}
}

// Drain pulls every item from src without feeding values back and returns
// them in order. It closes src before returning.
func Drain(src Source) ([]Item, error) {
	defer src.Close()

	var items []Item
	for {
		item, ok, err := src.Next(nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, item)
	}
}
