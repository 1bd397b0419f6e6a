package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/vango-dev/spool/pkg/content"
	"github.com/vango-dev/spool/pkg/forms"
	"github.com/vango-dev/spool/pkg/html"
	"github.com/vango-dev/spool/pkg/store"
)

// ErrUnknownAction is returned by Apply for unsupported action types.
var ErrUnknownAction = errors.New("events: unknown action")

// ErrNotNumeric is returned when an add action targets a non-numeric state.
var ErrNotNumeric = errors.New("events: state is not numeric")

// Handler interprets state, click and attrs effects.
//
// State values are kept in a store.Store as JSON. Click effects queue
// data-click attributes for the next form control. A Handler carries the
// queue of one render, so create one per render with NewHandler.
type Handler struct {
	store  store.Store
	queue  *forms.Queue
	logger *slog.Logger
	mu     *sync.Mutex
}

// Ensure Handler implements content.EffectHandler.
var _ content.EffectHandler = (*Handler)(nil)

// NewHandler creates a Handler backed by s. A nil logger uses slog.Default.
func NewHandler(s store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  s,
		queue:  &forms.Queue{},
		logger: logger,
		mu:     &sync.Mutex{},
	}
}

// ForRender returns a Handler sharing the store and action lock of h with an
// empty attribute queue.
func (h *Handler) ForRender() *Handler {
	return &Handler{store: h.store, queue: &forms.Queue{}, logger: h.logger, mu: h.mu}
}

// HandleEffect implements content.EffectHandler.
func (h *Handler) HandleEffect(ctx context.Context, e content.Effect) (any, error) {
	switch e := e.(type) {
	case StateEffect:
		return h.state(ctx, e)
	case ClickEffect:
		return nil, h.click(e.Action)
	case forms.Attrs:
		return h.queue.Take(), nil
	default:
		h.logger.Debug("unhandled effect", "type", e.Type())
		return nil, nil
	}
}

func (h *Handler) state(ctx context.Context, e StateEffect) (Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, found, err := h.read(ctx, e.Name)
	if err != nil {
		return Value{}, err
	}
	if !found {
		if e.Initial != nil {
			current = e.Initial()
		}
		if err := h.write(ctx, e.Name, current); err != nil {
			return Value{}, err
		}
	}
	return Value{Name: e.Name, Current: current}, nil
}

func (h *Handler) click(a Action) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("events: encode action: %w", err)
	}
	h.queue.Push(
		html.Dataset(html.A("click", string(data))),
		html.Dataset(html.A("click-"+a.Type+"-"+a.Name, formatAmount(a.Amount))),
	)
	return nil
}

// Apply performs a to the store and returns the new value of its state.
func (h *Handler) Apply(ctx context.Context, a Action) (Value, error) {
	if a.Type != ActionAdd {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	current, found, err := h.read(ctx, a.Name)
	if err != nil {
		return Value{}, err
	}
	n, ok := current.(float64)
	if !found || !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrNotNumeric, a.Name)
	}

	next := n + a.Amount
	if err := h.write(ctx, a.Name, next); err != nil {
		return Value{}, err
	}
	h.logger.Debug("applied action", "type", a.Type, "name", a.Name, "value", next)
	return Value{Name: a.Name, Current: next}, nil
}

func (h *Handler) read(ctx context.Context, name string) (any, bool, error) {
	raw, err := h.store.Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false, fmt.Errorf("events: decode state %q: %w", name, err)
	}
	return v, true, nil
}

func (h *Handler) write(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("events: encode state %q: %w", name, err)
	}
	return h.store.Set(ctx, name, string(data))
}

// DecodeAction decodes an action from loosely typed input, such as form
// values or a decoded JSON object. Numeric strings are accepted for amount.
func DecodeAction(input map[string]any) (Action, error) {
	var a Action
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &a,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Action{}, err
	}
	if err := dec.Decode(input); err != nil {
		return Action{}, fmt.Errorf("events: decode action: %w", err)
	}
	if a.Type == "" || a.Name == "" {
		return Action{}, fmt.Errorf("events: decode action: type and name are required")
	}
	return a, nil
}

// ParseAction decodes the JSON written to a data-click attribute.
func ParseAction(data []byte) (Action, error) {
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return Action{}, fmt.Errorf("events: parse action: %w", err)
	}
	return DecodeAction(input)
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
