package tag

import (
	"errors"
	"fmt"
)

// Error represents misuse of the tag algebra or the tracking frame stack.
//
// These are programmer errors, never runtime conditions:
//   - Dirtying or updating a tag of the wrong kind
//   - A tag whose value depends on itself (unless allow-listed)
//   - Popping a tracking frame out of order
//   - Dirtying a tag that the active computation already read
//
// Operations with an error return (Dirty, Update) return *Error. Operations
// on read paths (Value, PopTrackFrame) panic with *Error, since they have no
// error channel and continuing would produce unsound invalidation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Tag describes the tag involved, if any.
	Tag string
}

// ErrorCode categorizes tag errors.
type ErrorCode string

const (
	// ErrCodeInvalidOperation indicates an operation on a tag of the wrong kind.
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// ErrCodeCycleDetected indicates a tag was evaluated while already being evaluated.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodeUnbalancedFrame indicates PopTrackFrame was called out of order.
	ErrCodeUnbalancedFrame ErrorCode = "UNBALANCED_FRAME"

	// ErrCodeConsumedTag indicates a tag was dirtied after an active frame read it.
	ErrCodeConsumedTag ErrorCode = "TAG_ALREADY_CONSUMED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("%s: %s (tag=%s)", e.Code, e.Message, e.Tag)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidOperation returns true if err is an invalid tag operation.
func IsInvalidOperation(err error) bool {
	return hasCode(err, ErrCodeInvalidOperation)
}

// IsCycleError returns true if err is a cycle detection error.
func IsCycleError(err error) bool {
	return hasCode(err, ErrCodeCycleDetected)
}

// IsUnbalancedFrame returns true if err reports a frame stack violation.
func IsUnbalancedFrame(err error) bool {
	return hasCode(err, ErrCodeUnbalancedFrame)
}

// IsConsumedTag returns true if err reports dirtying an already consumed tag.
func IsConsumedTag(err error) bool {
	return hasCode(err, ErrCodeConsumedTag)
}

func hasCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

func newInvalidOperation(op string, t *Tag) *Error {
	return &Error{
		Code:    ErrCodeInvalidOperation,
		Message: fmt.Sprintf("%s: tag of kind %s is not %s", op, t.kind, requiredKind(op)),
		Tag:     t.String(),
	}
}

func requiredKind(op string) string {
	if op == "update" {
		return "updatable"
	}
	return "dirtyable"
}

func newCycleError(t *Tag) *Error {
	return &Error{
		Code:    ErrCodeCycleDetected,
		Message: "tag value depends on itself",
		Tag:     t.String(),
	}
}

func newUnbalancedFrameError() *Error {
	return &Error{
		Code:    ErrCodeUnbalancedFrame,
		Message: "popped a tracking frame that is not the innermost frame",
	}
}

func newConsumedTagError(t *Tag) *Error {
	return &Error{
		Code:    ErrCodeConsumedTag,
		Message: "dirtied a tag that was already read by the active computation",
		Tag:     t.String(),
	}
}
