package reference

import (
	"errors"
	"fmt"
)

// Error represents misuse of a reference.
type Error struct {
	Code    ErrorCode
	Message string
}

// ErrorCode categorizes reference errors.
type ErrorCode string

const (
	// ErrCodePrematureQuery indicates IsConst was called before the first Value.
	ErrCodePrematureQuery ErrorCode = "PREMATURE_QUERY"

	// ErrCodeUnwritable indicates Store.Set on a target that cannot be written.
	ErrCodeUnwritable ErrorCode = "UNWRITABLE"
)

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsPrematureQuery returns true if err reports a premature IsConst call.
func IsPrematureQuery(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == ErrCodePrematureQuery
}

// IsUnwritable returns true if err reports an unwritable property target.
func IsUnwritable(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == ErrCodeUnwritable
}

func newUnwritable(format string, args ...any) *Error {
	return &Error{Code: ErrCodeUnwritable, Message: fmt.Sprintf(format, args...)}
}
