package content

import "iter"

// Kind is the content item discriminator.
type Kind uint8

const (
	KindOmitted  Kind = iota // nil, false, absent
	KindText                 // Escaped text
	KindNumber               // Formatted number
	KindSafe                 // Pre-escaped markup
	KindSequence             // Ordered group of items
	KindDeferred             // Value available later
	KindUnique               // Unique identifier request
	KindEffect               // Tagged record for the effect handler

	kindInvalid // Unclassifiable value, fails the render
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindOmitted:
		return "Omitted"
	case KindText:
		return "Text"
	case KindNumber:
		return "Number"
	case KindSafe:
		return "Safe"
	case KindSequence:
		return "Sequence"
	case KindDeferred:
		return "Deferred"
	case KindUnique:
		return "Unique"
	case KindEffect:
		return "Effect"
	default:
		return "Invalid"
	}
}

// Item is one classified content value.
//
// The zero Item is omitted content.
type Item struct {
	kind   Kind
	text   string        // KindText, KindNumber, KindSafe
	open   func() Source // KindSequence
	def    *Deferred     // KindDeferred
	effect Effect        // KindEffect
	err    error         // kindInvalid
	quoted bool          // KindSequence inside a quoted attribute value
}

// Kind returns the variant of the item.
func (i Item) Kind() Kind {
	return i.kind
}

// IsOmitted reports whether the item renders nothing.
func (i Item) IsOmitted() bool {
	return i.kind == KindOmitted
}

// Text returns the raw string of a Text, Number or Safe item.
// Text items are returned unescaped.
func (i Item) Text() string {
	return i.text
}

// Open starts a new traversal of a Sequence item.
// It returns nil for any other kind.
func (i Item) Open() Source {
	if i.kind != KindSequence || i.open == nil {
		return nil
	}
	return i.open()
}

// IsQuoted reports whether the item is a sequence created by Quoted.
func (i Item) IsQuoted() bool {
	return i.kind == KindSequence && i.quoted
}

// Deferred returns the future of a Deferred item.
func (i Item) Deferred() *Deferred {
	return i.def
}

// Effect returns the record of an Effect item.
func (i Item) Effect() Effect {
	return i.effect
}

// Err returns the classification error of an invalid item.
func (i Item) Err() error {
	return i.err
}

// Omit returns omitted content.
func Omit() Item {
	return Item{}
}

// Text returns a text item. The text is escaped when rendered.
func Text(s string) Item {
	return Item{kind: KindText, text: s}
}

// Safe returns a pre-escaped markup item. It is written to the output as is,
// so it must only be used with trusted content.
func Safe(s string) Item {
	return Item{kind: KindSafe, text: s}
}

// Unique returns a request for a fresh unique identifier. The identifier is
// written to the output in place of the request and, when yielded from a
// producer, returned from the Yield call.
func Unique() Item {
	return Item{kind: KindUnique}
}

// EffectItem wraps an effect record.
func EffectItem(e Effect) Item {
	if e == nil {
		return Item{}
	}
	return Item{kind: KindEffect, effect: e}
}

// Invalid returns an item that fails the render with err.
func Invalid(err error) Item {
	return Item{kind: kindInvalid, err: err}
}

// Seq returns an eager sequence. Each value is classified with From when
// the sequence is traversed.
func Seq(values ...any) Item {
	return Item{kind: KindSequence, open: func() Source {
		return &sliceSource{values: values}
	}}
}

// Quoted returns a sequence of the single value v whose text, including the
// text of nested sequences and deferred values, is escaped for a quoted
// attribute value. Safe and Number items are still written as is.
func Quoted(v any) Item {
	return Item{kind: KindSequence, quoted: true, open: func() Source {
		return &sliceSource{values: []any{v}}
	}}
}

// Iter returns a sequence that pulls from seq. Values yielded by seq cannot
// receive a value back; use Producer for that.
func Iter(seq iter.Seq[any]) Item {
	if seq == nil {
		return Item{}
	}
	return Item{kind: KindSequence, open: func() Source {
		next, stop := iter.Pull(seq)
		return &pullSource{next: next, stop: stop}
	}}
}

// Lazy returns a sequence whose single value is computed by fn when the
// sequence is first traversed.
func Lazy(fn func() any) Item {
	if fn == nil {
		return Item{}
	}
	return Item{kind: KindSequence, open: func() Source {
		return &lazySource{fn: fn}
	}}
}

// FromSource returns a sequence backed by a caller supplied Source.
// open is called once per traversal.
func FromSource(open func() Source) Item {
	if open == nil {
		return Item{}
	}
	return Item{kind: KindSequence, open: open}
}
