// Package events adds named state and click actions to rendered components.
//
// A component reads state with UseState and binds a click action to the
// next form control with OnClick:
//
//	func Counter() content.Item {
//	    return content.Producer(func(y *content.Yielder) error {
//	        count := events.UseState(y, "count", func() any { return 0 })
//	        y.Yield(events.OnClick(events.Add(1, count)))
//	        y.Yield(forms.Button("Increment"))
//	        y.Yield(forms.Output(count))
//	        return nil
//	    })
//	}
//
// The Handler interprets these effects against a store.Store. Clicking the
// button sends the action encoded in its data-click attribute back to the
// server, which applies it with Handler.Apply and renders again.
package events

import (
	"fmt"

	"github.com/vango-dev/spool/pkg/content"
)

// Effect types interpreted by Handler.
const (
	EffectState = "state"
	EffectClick = "click"
)

// Action types.
const (
	ActionAdd = "add"
)

// Action is a state change triggered by a UI event.
type Action struct {
	Type   string  `json:"type" mapstructure:"type"`
	Amount float64 `json:"amount" mapstructure:"amount"`
	Name   string  `json:"name" mapstructure:"name"`
}

// Add returns an action that adds amount to the numeric state to.
func Add(amount float64, to Value) Action {
	return Action{Type: ActionAdd, Amount: amount, Name: to.Name}
}

// StateEffect requests the current value of a named state, created with
// Initial on first use.
type StateEffect struct {
	Name    string
	Initial func() any
}

// Type implements content.Effect.
func (StateEffect) Type() string { return EffectState }

// State returns a StateEffect.
func State(name string, initial func() any) StateEffect {
	return StateEffect{Name: name, Initial: initial}
}

// ClickEffect binds an action to the click event of the next form control.
type ClickEffect struct {
	Action Action
}

// Type implements content.Effect.
func (ClickEffect) Type() string { return EffectClick }

// OnClick returns a ClickEffect for a.
func OnClick(a Action) ClickEffect {
	return ClickEffect{Action: a}
}

// Value is the current value of a named state. It renders as its value.
type Value struct {
	Name    string
	Current any
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.Current == nil {
		return ""
	}
	return fmt.Sprint(v.Current)
}

// UseState yields a State effect and returns the resulting Value. Without a
// handler for state effects, the value is computed from initial.
func UseState(y *content.Yielder, name string, initial func() any) Value {
	if v, ok := y.Effect(State(name, initial)).(Value); ok {
		return v
	}
	var current any
	if initial != nil {
		current = initial()
	}
	return Value{Name: name, Current: current}
}
