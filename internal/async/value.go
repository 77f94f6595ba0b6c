// Package async models the lifecycle of a remote request.
//
// A [Value] is what state holds: not started, in progress, completed with a
// value, or failed with a message. An [Action] is what gets dispatched: the
// start, success, or failure of one request, optionally carrying patches that
// the reducer applies to the surrounding state.
//
// [Reduce] folds an Action into state by lifting the matching Value into the
// state and then applying the action's patches.
package async

// State tags a Value. The tag determines which of Value's fields are set.
type State string

const (
	StateInit     State = "INIT"
	StateProgress State = "PROGRESS"
	StateComplete State = "COMPLETE"
	StateError    State = "ERROR"
)

// Value is the observable state of one request.
//
// Build values with the constructors; the zero Value is not valid, Init is.
type Value[T any] struct {
	State State  `json:"state"`
	Value T      `json:"value,omitempty"`
	Err   string `json:"error,omitempty"`
}

// Init is a request that has not been started.
func Init[T any]() Value[T] {
	return Value[T]{State: StateInit}
}

// Progress is a request that is in flight.
func Progress[T any]() Value[T] {
	return Value[T]{State: StateProgress}
}

// Complete is a request that finished with v.
func Complete[T any](v T) Value[T] {
	return Value[T]{State: StateComplete, Value: v}
}

// Failed is a request that finished with an error message.
func Failed[T any](msg string) Value[T] {
	return Value[T]{State: StateError, Err: msg}
}

// Get returns the completed value. ok is false in any other state.
func (v Value[T]) Get() (T, bool) {
	if v.State != StateComplete {
		var zero T
		return zero, false
	}
	return v.Value, true
}

// Pending reports whether the request is in flight.
func (v Value[T]) Pending() bool {
	return v.State == StateProgress
}

// Settled reports whether the request completed or failed.
func (v Value[T]) Settled() bool {
	return v.State == StateComplete || v.State == StateError
}

// Error returns the failure message, or "" when not failed.
func (v Value[T]) Error() string {
	if v.State != StateError {
		return ""
	}
	return v.Err
}
