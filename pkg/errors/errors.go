package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// New returns an error with the supplied message.
func New(msg string) error {
	return errors.New(msg)
}

// WithContext annotates `err` with a description of what was being done when
// it occurred. The resulting message reads "context: err".
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.WithMessage(err, context)
}

// RootCause returns the innermost error that isn't wrapped by WithContext.
func RootCause(err error) error {
	return errors.Cause(err)
}

// FriendlyError is an error whose message is meant to be shown to the user
// as-is, without any of the context that was attached while it propagated.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError using fmt.Sprintf semantics.
func NewFriendlyError(format string, args ...interface{}) error {
	return FriendlyError{fmt.Sprintf(format, args...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message that should be displayed to the user.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

// Friendly is implemented by errors that carry their own user-facing message.
type Friendly interface {
	FriendlyMessage() string
}

// GetFriendlyMessage returns the friendly message of the root cause of `err`,
// if it has one.
func GetFriendlyMessage(err error) (string, bool) {
	if friendly, ok := RootCause(err).(Friendly); ok {
		return friendly.FriendlyMessage(), true
	}
	return "", false
}
