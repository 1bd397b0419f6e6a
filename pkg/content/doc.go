// Package content defines the content tree consumed by the spool renderer.
//
// Every value placed in a content tree is classified into an Item, a small
// tagged union with one Kind per variant:
//
//   - KindOmitted: nil, false and other absent values; dropped silently
//   - KindText: plain text, escaped when rendered
//   - KindNumber: numbers, formatted with default decimal formatting
//   - KindSafe: pre-escaped markup, never escaped again
//   - KindSequence: ordered groups, eager or lazily produced
//   - KindDeferred: values that become available later
//   - KindUnique: a request to inject a fresh unique identifier
//   - KindEffect: a tagged record forwarded to an EffectHandler
//
// # Producers
//
// A producer is a function that yields content one item at a time and may
// receive a value back at each suspension point:
//
//	func Field(label string) content.Item {
//	    return content.Producer(func(y *content.Yielder) error {
//	        id := y.Unique()
//	        y.Yield(html.HTML(`<label for="${}">`, id))
//	        y.Yield(label)
//	        y.Yield(html.HTML(`</label><input id="${}">`, id))
//	        return nil
//	    })
//	}
//
// A producer runs only while the renderer pulls from it, so it never runs
// concurrently with the traversal that consumes it.
//
// # Deferred Values
//
// Deferred values are futures. The renderer starts them as soon as they are
// visited and fixes their position in the output at that moment, so the
// final output never depends on the order in which they complete.
package content
