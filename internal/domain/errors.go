package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateReferral = errors.New("duplicate referral")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrOperational       = errors.New("operation failed")
)

// Error carries the entity and id a failure refers to so admin callers can
// render something useful. Kind is one of the sentinels above.
type Error struct {
	Kind   error
	Entity string
	ID     any
	Msg    string
}

func (e *Error) Error() string {
	switch {
	case e.Entity != "" && e.ID != nil && e.Msg != "":
		return fmt.Sprintf("%s %v: %s: %s", e.Entity, e.ID, e.Kind, e.Msg)
	case e.Entity != "" && e.ID != nil:
		return fmt.Sprintf("%s %v: %s", e.Entity, e.ID, e.Kind)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Kind }

func NotFound(entity string, id any) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id}
}

func Duplicate(entity string, id any) error {
	return &Error{Kind: ErrDuplicateReferral, Entity: entity, ID: id, Msg: "referred user already has a referral"}
}

func InvalidState(entity string, id any, msg string) error {
	return &Error{Kind: ErrInvalidState, Entity: entity, ID: id, Msg: msg}
}

func InvalidArgument(msg string) error {
	return &Error{Kind: ErrInvalidArgument, Msg: msg}
}

// Operational hides a storage failure behind a generic error. The cause is
// for logs only.
func Operational(op string) error {
	return &Error{Kind: ErrOperational, Msg: op}
}
