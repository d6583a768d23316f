package reconcile

import (
	"errors"
	"fmt"
)

// Error represents a violation of the synchronizer's delegate contract.
type Error struct {
	Code    ErrorCode
	Message string
	Op      Op
	Key     any
}

// ErrorCode categorizes synchronizer errors.
type ErrorCode string

const (
	// ErrCodeUnstableReference indicates a key was associated with a different item or value reference.
	ErrCodeUnstableReference ErrorCode = "UNSTABLE_REFERENCE"
)

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (op=%s, key=%v)", e.Code, e.Message, e.Op, e.Key)
}

// IsUnstableReference returns true if err reports an unstable reference.
func IsUnstableReference(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == ErrCodeUnstableReference
}
