// Package apierr defines the error kinds surfaced across the job
// orchestration subsystem, distinguished via errors.Is/errors.As.
package apierr

import "fmt"

// Kind is a coarse error category.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidTransition Kind = "invalid_transition"
	KindInvalidProfile    Kind = "invalid_profile_value"
	KindExecutorTimeout   Kind = "executor_timeout"
	KindExecutorCanceled  Kind = "executor_canceled"
	KindExecutorFailure   Kind = "executor_failure"
	KindUnauthorized      Kind = "unauthorized"
)

// Error is the concrete error type carrying a Kind and a message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is supports errors.Is(err, apierr.NotFound) style sentinel comparisons
// against a Kind-only Error built with New.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// sentinel kind-only errors for errors.Is comparisons.
var (
	NotFound          = &Error{Kind: KindNotFound}
	InvalidTransition = &Error{Kind: KindInvalidTransition}
	InvalidProfile    = &Error{Kind: KindInvalidProfile}
	ExecutorTimeout   = &Error{Kind: KindExecutorTimeout}
	ExecutorCanceled  = &Error{Kind: KindExecutorCanceled}
	ExecutorFailure   = &Error{Kind: KindExecutorFailure}
	Unauthorized      = &Error{Kind: KindUnauthorized}
)
