package reference

import (
	"github.com/roach88/revtrack/internal/identity"
	"github.com/roach88/revtrack/internal/tag"
)

// Reference is a lazily computed, cacheable value.
type Reference[T any] interface {
	// Value returns the current value, recomputing only if needed.
	Value() T

	// IsConst reports whether the value can never change.
	IsConst() bool

	// Tag returns the tag describing when Value must be called again.
	Tag() *tag.Tag
}

// PathReference is a reference whose value can be navigated by property.
type PathReference interface {
	Reference[any]

	// Get returns the reference for a property of this reference's value.
	Get(key string) PathReference
}

// Const is a reference to a value that never changes.
type Const[T any] struct {
	value T
}

// NewConst returns a constant reference to v.
func NewConst[T any](v T) *Const[T] {
	return &Const[T]{value: v}
}

func (c *Const[T]) Value() T      { return c.value }
func (c *Const[T]) IsConst() bool { return true }
func (c *Const[T]) Tag() *tag.Tag { return tag.Constant }

// Mutable is a root reference whose value is replaced from outside.
//
// Reading consumes its tag, so tracked computations that read a Mutable
// are invalidated when it changes.
type Mutable[T any] struct {
	ctx   *tag.Context
	tag   *tag.Tag
	value T
}

// NewMutable returns a mutable reference holding v.
func NewMutable[T any](ctx *tag.Context, v T) *Mutable[T] {
	return &Mutable[T]{ctx: ctx, tag: ctx.NewTag(), value: v}
}

func (m *Mutable[T]) Value() T {
	m.ctx.Consume(m.tag)
	return m.value
}

func (m *Mutable[T]) IsConst() bool { return false }
func (m *Mutable[T]) Tag() *tag.Tag { return m.tag }

// Peek returns the value without consuming the tag.
func (m *Mutable[T]) Peek() T {
	return m.value
}

// Update replaces the value, dirtying the tag only if v has a different
// identity than the current value.
func (m *Mutable[T]) Update(v T) error {
	if identity.Same(any(m.value), any(v)) {
		return nil
	}
	return m.ForceUpdate(v)
}

// ForceUpdate replaces the value and always dirties the tag.
func (m *Mutable[T]) ForceUpdate(v T) error {
	if err := tag.Dirty(m.tag); err != nil {
		return err
	}
	m.value = v
	return nil
}
