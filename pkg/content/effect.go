package content

import "context"

// Effect is a tagged record that is not content. Yielding an Effect hands it
// to the render's EffectHandler; the handler's result is returned from the
// Yield call that suspended the producer.
type Effect interface {
	Type() string
}

// BasicEffect is a general purpose Effect with an arbitrary payload.
type BasicEffect struct {
	Kind    string
	Payload any
}

// Type implements Effect.
func (e BasicEffect) Type() string {
	return e.Kind
}

// NewEffect returns a BasicEffect tagged with typ.
func NewEffect(typ string, payload any) BasicEffect {
	return BasicEffect{Kind: typ, Payload: payload}
}

// EffectHandler interprets effects yielded during a render.
//
// The result may be any value, including a *Deferred, which is passed to the
// producer unresolved. Returning an error fails the render.
type EffectHandler interface {
	HandleEffect(ctx context.Context, e Effect) (any, error)
}

// EffectHandlerFunc adapts a function to EffectHandler.
type EffectHandlerFunc func(ctx context.Context, e Effect) (any, error)

// HandleEffect implements EffectHandler.
func (f EffectHandlerFunc) HandleEffect(ctx context.Context, e Effect) (any, error) {
	return f(ctx, e)
}

// NopHandler ignores every effect and resumes producers with nil.
var NopHandler EffectHandler = EffectHandlerFunc(func(context.Context, Effect) (any, error) {
	return nil, nil
})

// Handlers is an EffectHandler that dispatches by effect type. Types
// without an entry are ignored.
type Handlers map[string]EffectHandlerFunc

// HandleEffect implements EffectHandler.
func (h Handlers) HandleEffect(ctx context.Context, e Effect) (any, error) {
	fn, ok := h[e.Type()]
	if !ok {
		return nil, nil
	}
	return fn(ctx, e)
}
