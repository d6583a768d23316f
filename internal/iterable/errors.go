package iterable

import (
	"errors"
	"fmt"
)

// Error represents an invalid iteration setup.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string
}

// ErrorCode categorizes iteration errors.
type ErrorCode string

const (
	// ErrCodeInvalidKeyPath indicates a key path using the @ sigil that is not a reserved strategy.
	ErrCodeInvalidKeyPath ErrorCode = "INVALID_KEY_PATH"
)

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%q)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidKeyPath returns true if err reports an invalid key path.
func IsInvalidKeyPath(err error) bool {
	var ie *Error
	return errors.As(err, &ie) && ie.Code == ErrCodeInvalidKeyPath
}
