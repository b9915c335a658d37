package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds. Use errors.Is against these to classify an *Error.
var (
	ErrTokenizationFailure = errors.New("tokenization failure")
	ErrInferenceFailure    = errors.New("inference failure")
	ErrModelLoadFailure    = errors.New("model load failure")
	ErrTimeout             = errors.New("timeout")
)

// Error is a classified failure from the embedding pipeline or model loading.
type Error struct {
	Kind error  // one of the Err* kinds above
	Op   string // pipeline step, e.g. "infer"
	Err  error
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindLabel returns a short label for err's kind, used in metrics and logs.
func KindLabel(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTokenizationFailure):
		return "tokenization"
	case errors.Is(err, ErrModelLoadFailure):
		return "model_load"
	default:
		return "inference"
	}
}

// contextError classifies a context error: deadline expiry is a timeout, cancellation an inference failure.
func contextError(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrTimeout, op, err)
	}
	return newError(ErrInferenceFailure, op, err)
}
