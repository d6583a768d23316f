package reconcile

import (
	"fmt"

	"github.com/roach88/revtrack/internal/reference"
)

// Guard wraps a Delegate and enforces reference stability.
//
// Within a pass a key may only ever be reported with one *Item. Across
// passes a key keeps the value reference it was appended or inserted
// with until it is deleted.
type Guard[E any] struct {
	next  Delegate[E]
	items map[any]*Item
	refs  map[any]*reference.Mutable[any]
}

// NewGuard wraps next.
func NewGuard[E any](next Delegate[E]) *Guard[E] {
	return &Guard[E]{
		next:  next,
		items: make(map[any]*Item),
		refs:  make(map[any]*reference.Mutable[any]),
	}
}

// Reset starts a new pass.
func (g *Guard[E]) Reset() {
	clear(g.items)
}

func (g *Guard[E]) Retain(env E, key any, item *Item) error {
	if err := g.check(OpRetain, key, item, false); err != nil {
		return err
	}
	return g.next.Retain(env, key, item)
}

func (g *Guard[E]) Append(env E, key any, item *Item) error {
	if err := g.check(OpAppend, key, item, true); err != nil {
		return err
	}
	if err := g.next.Append(env, key, item); err != nil {
		return err
	}
	g.refs[key] = item.Value
	return nil
}

func (g *Guard[E]) Insert(env E, key any, item *Item, before any) error {
	if err := g.check(OpInsert, key, item, true); err != nil {
		return err
	}
	if err := g.next.Insert(env, key, item, before); err != nil {
		return err
	}
	g.refs[key] = item.Value
	return nil
}

func (g *Guard[E]) Move(env E, key any, item *Item, before any) error {
	if err := g.check(OpMove, key, item, false); err != nil {
		return err
	}
	return g.next.Move(env, key, item, before)
}

func (g *Guard[E]) Delete(env E, key any) error {
	if err := g.next.Delete(env, key); err != nil {
		return err
	}
	delete(g.refs, key)
	return nil
}

func (g *Guard[E]) Done(env E) error {
	g.Reset()
	return g.next.Done(env)
}

func (g *Guard[E]) check(op Op, key any, item *Item, created bool) error {
	if prev, ok := g.items[key]; ok && prev != item {
		return &Error{
			Code:    ErrCodeUnstableReference,
			Message: "key reported with a different item in the same pass",
			Op:      op,
			Key:     key,
		}
	}
	g.items[key] = item

	ref, known := g.refs[key]
	switch {
	case created:
	case !known:
		g.refs[key] = item.Value
	case ref != item.Value:
		return &Error{
			Code:    ErrCodeUnstableReference,
			Message: fmt.Sprintf("value reference changed since the key was first rendered (%p != %p)", item.Value, ref),
			Op:      op,
			Key:     key,
		}
	}
	return nil
}
