package render

import (
	"errors"
	"fmt"
)

// ErrRenderFailed matches every error returned by a failed render.
//
//	if errors.Is(err, render.ErrRenderFailed) { ... }
var ErrRenderFailed = errors.New("render: failed")

// RenderError reports a failed render with the originating cause.
// No partial output accompanies a RenderError.
type RenderError struct {
	Op    string // "flatten", "resolve" or "write"
	Cause error  // Underlying error
}

// Error returns the error message with the failing phase.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render: %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrRenderFailed.
func (e *RenderError) Is(target error) bool {
	return target == ErrRenderFailed
}

func failed(op string, cause error) error {
	var re *RenderError
	if errors.As(cause, &re) {
		return cause
	}
	return &RenderError{Op: op, Cause: cause}
}
