package api

import (
	"errors"
	"fmt"
)

// ErrRequestFailed matches every *RequestFailedError via errors.Is.
var ErrRequestFailed = errors.New("api: request failed")

// Operation names used in RequestFailedError.
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// RequestFailedError reports a transport failure or a non-2xx status for one
// resource operation. StatusCode is 0 for transport errors.
type RequestFailedError struct {
	Resource   string
	Operation  string
	StatusCode int
	Err        error
}

func (e *RequestFailedError) Error() string {
	msg := fmt.Sprintf("api: failed to %s %s", e.Operation, e.Resource)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

// Is reports ErrRequestFailed as a match so callers need not know the type.
func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}
