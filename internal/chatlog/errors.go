package chatlog

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed Tailer
var ErrClosed = errors.New("tailer closed")

// NotFoundError means the chat log does not exist
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("chat log not found: %s: %v", e.Path, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// AccessError means the chat log exists but cannot be opened or read
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("chat log not accessible: %s: %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err should stop tailing
func IsFatal(err error) bool {
	var nf *NotFoundError
	var ae *AccessError
	return errors.As(err, &nf) || errors.As(err, &ae) || errors.Is(err, ErrClosed)
}
