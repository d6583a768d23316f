package iterable

import (
	"fmt"
	"strings"

	"github.com/roach88/revtrack/internal/identity"
	"github.com/roach88/revtrack/internal/reference"
)

// Reserved key strategies.
const (
	KeyIndex    = "@index"
	KeyMemo     = "@key"
	KeyIdentity = "@identity"
)

// KeyFunc derives the raw key of an item at position pos.
// Raw keys are always comparable.
type KeyFunc func(value, memo any, pos int) any

type sentinel struct {
	name string
}

func (s *sentinel) String() string { return s.name }

// nilKey stands in for nil values under @identity and path keys, so nil is
// an ordinary key that never collides with a real value.
var nilKey = &sentinel{name: "<nil>"}

// KeyFor resolves a key strategy. An empty path means @identity. Path
// segments are read with getter.
func KeyFor(path string, getter reference.Getter) (KeyFunc, error) {
	switch path {
	case KeyIndex:
		return func(_, _ any, pos int) any { return pos }, nil
	case KeyMemo:
		return func(_, memo any, _ int) any { return rawKey(memo) }, nil
	case KeyIdentity, "":
		return func(value, _ any, _ int) any { return rawKey(value) }, nil
	}

	if strings.HasPrefix(path, "@") {
		return nil, &Error{
			Code:    ErrCodeInvalidKeyPath,
			Message: fmt.Sprintf("unknown key strategy, want %s, %s, %s or a property path", KeyIndex, KeyMemo, KeyIdentity),
			Path:    path,
		}
	}
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return nil, &Error{
				Code:    ErrCodeInvalidKeyPath,
				Message: "empty segment in key path",
				Path:    path,
			}
		}
	}

	return func(value, _ any, _ int) any {
		return rawKey(reference.ReadPath(getter, value, path))
	}, nil
}

func rawKey(v any) any {
	if v == nil {
		return nilKey
	}
	return identity.Key(v)
}
