package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Result is the outcome of a single provider fetch: either a success value or
// an error kind, never both. On the wire a success encodes as the bare value
// and a failure as {"error":"<message>"}.
type Result[T any] struct {
	value T
	err   error
}

// OK returns a successful Result holding v.
func OK[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail returns a failed Result. A nil err is replaced with ErrUnknown so a
// failed Result can never be mistaken for a success.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = ErrUnknown
	}
	return Result[T]{err: err}
}

// Get returns the success value and a nil error, or the zero value and the
// error kind.
func (r Result[T]) Get() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

// Value returns the success value, or the zero value when failed.
func (r Result[T]) Value() T {
	if r.err != nil {
		var zero T
		return zero
	}
	return r.value
}

// Err returns the error kind, or nil on success.
func (r Result[T]) Err() error { return r.err }

// Failed reports whether r is the error variant.
func (r Result[T]) Failed() bool { return r.err != nil }

type errorShape struct {
	Error *string `json:"error"`
}

// MarshalJSON implements json.Marshaler.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.err != nil {
		msg := r.err.Error()
		return json.Marshal(errorShape{Error: &msg})
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON implements json.Unmarshaler. An object carrying an "error"
// key decodes to the error variant regardless of any other keys.
func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var zero T
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var probe errorShape
		if err := json.Unmarshal(trimmed, &probe); err == nil && probe.Error != nil {
			r.value = zero
			r.err = ErrorFromMessage(*probe.Error)
			return nil
		}
	}

	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	r.value = v
	r.err = nil
	return nil
}

// ErrorFromMessage maps a wire error message back onto the matching error
// kind. Unknown messages become a plain error carrying the message.
func ErrorFromMessage(msg string) error {
	for _, known := range []error{ErrWeatherFetch, ErrCryptoFetch, ErrNewsFetch, ErrUnknown} {
		if known.Error() == msg {
			return known
		}
	}
	return errors.New(msg)
}
