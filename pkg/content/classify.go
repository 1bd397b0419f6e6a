package content

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strconv"
)

// ErrUnsupported is wrapped by the error of a value From cannot classify.
var ErrUnsupported = errors.New("content: unsupported value")

// Numeric is the set of Go types classified as numbers.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Number returns a number item formatted with default decimal formatting.
func Number[N Numeric](n N) Item {
	return Item{kind: KindNumber, text: formatNumber(n)}
}

func formatNumber[N Numeric](n N) string {
	if f, ok := any(n).(float32); ok {
		return formatFloat(float64(f), 32)
	}
	// Only float kinds have a non-zero half.
	var one, two N = 1, 2
	if one/two != 0 {
		return formatFloat(float64(n), 64)
	}
	if n < 0 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatUint(uint64(n), 10)
}

// formatFloat formats f the way a JavaScript number is converted to a
// string: plain decimal notation between 1e-6 and 1e21, exponent notation
// outside that range.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, bits)
		// strconv pads one digit exponents: 1e-07.
		if i := len(s) - 3; i > 0 && (s[i] == '-' || s[i] == '+') && s[i+1] == '0' {
			s = s[:i+1] + s[i+2:]
		}
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// From classifies v into an Item.
//
// Classification rules:
//   - Item values are returned as is
//   - nil and bool are omitted; true is never rendered as text
//   - string is text, fmt.Stringer is text of its String result
//   - Go integer and float types are numbers
//   - *Deferred is deferred, Effect is an effect
//   - slices of any, Item or string and iter.Seq of any or Item are sequences
//   - ProducerFunc and func(*Yielder) error are producer sequences
//   - func() Item and func() any are lazy sequences
//
// Errors and values of any other type produce an item that fails the render.
func From(v any) Item {
	switch v := v.(type) {
	case Item:
		return v
	case nil:
		return Item{}
	case bool:
		return Item{}
	case string:
		return Text(v)
	case int:
		return Number(v)
	case int8:
		return Number(v)
	case int16:
		return Number(v)
	case int32:
		return Number(v)
	case int64:
		return Number(v)
	case uint:
		return Number(v)
	case uint8:
		return Number(v)
	case uint16:
		return Number(v)
	case uint32:
		return Number(v)
	case uint64:
		return Number(v)
	case uintptr:
		return Number(v)
	case float32:
		return Number(v)
	case float64:
		return Number(v)
	case *Deferred:
		if v == nil {
			return Item{}
		}
		return Item{kind: KindDeferred, def: v}
	case Effect:
		return EffectItem(v)
	case []any:
		return Seq(v...)
	case []Item:
		values := make([]any, len(v))
		for i, item := range v {
			values[i] = item
		}
		return Seq(values...)
	case []string:
		values := make([]any, len(v))
		for i, s := range v {
			values[i] = s
		}
		return Seq(values...)
	case iter.Seq[any]:
		return Iter(v)
	case iter.Seq[Item]:
		if v == nil {
			return Item{}
		}
		return Iter(func(yield func(any) bool) {
			for item := range v {
				if !yield(item) {
					return
				}
			}
		})
	case ProducerFunc:
		return Producer(v)
	case func(*Yielder) error:
		return Producer(v)
	case func() Item:
		if v == nil {
			return Item{}
		}
		return Lazy(func() any { return v() })
	case func() any:
		return Lazy(v)
	case error:
		return Invalid(fmt.Errorf("%w: error value %v", ErrUnsupported, v))
	case fmt.Stringer:
		return Text(v.String())
	default:
		return Invalid(fmt.Errorf("%w: %T", ErrUnsupported, v))
	}
}
