package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Error carries the operation and object key of a failed storage call.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with operation context.
func NewError(op, key string, err error) *Error {
	return &Error{Op: op, Key: key, Err: err}
}

// NotFound wraps a backend error so that errors.Is(err, ErrNotFound) holds
// while the backend message is preserved.
func NotFound(op, key string, err error) *Error {
	if err == nil {
		return &Error{Op: op, Key: key, Err: ErrNotFound}
	}
	return &Error{Op: op, Key: key, Err: fmt.Errorf("%w: %w", ErrNotFound, err)}
}

// IsNotFound reports whether err signals a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
