// Package apperr defines the error taxonomy shared by the repository core.
//
// Errors are built from a small set of sentinel kinds so callers can branch
// with errors.Is, while the message carries the offending identifier in a
// stable format the protocol front end can relay verbatim.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrDuplicate  = errors.New("already exists")
	ErrStorage    = errors.New("storage failure")
	ErrTypeInUse  = errors.New("type in use")
)

// Error pairs a sentinel kind with a user-visible message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// E builds an Error of the given kind with a formatted message.
func E(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ItemNotFound reports a missing item with its type and ID.
func ItemNotFound(itemType, id string) error {
	return E(ErrNotFound, "Item %s ID %s not found", itemType, id)
}

// TypeNotFound reports an unregistered item type.
func TypeNotFound(name string) error {
	return E(ErrNotFound, "Type %s not found", name)
}

// TagNotFound reports a missing tag.
func TagNotFound(name string) error {
	return E(ErrNotFound, "Tag %s not found", name)
}

// Storage wraps an underlying I/O failure without losing the cause.
func Storage(op string, err error) error {
	return &Error{Kind: ErrStorage, Msg: fmt.Sprintf("%s: %v", op, err)}
}
