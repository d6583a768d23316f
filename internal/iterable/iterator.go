package iterable

import (
	"cmp"
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// Item is one element of an iteration pass.
type Item struct {
	Key   any
	Value any
	Memo  any
}

// Iterator yields the items of one pass in order.
type Iterator interface {
	// IsEmpty reports whether the pass has no items at all.
	IsEmpty() bool

	// Next returns the next item, or false once the pass is exhausted.
	Next() (Item, bool)
}

// Delegate lets arbitrary collections take part in keyed iteration.
// Values implementing Delegate are iterated lazily through it.
type Delegate interface {
	IsEmpty() bool
	Next() (value, memo any, ok bool)
}

// newIterator picks an iterator for v:
//   - nil and non-collections are empty
//   - Delegate values are iterated lazily
//   - []any, other slices and arrays yield (element, index)
//   - maps yield (value, key) in sorted key order
//   - iter.Seq[any] yields (element, index), iter.Seq2[any, any] yields (value, memo)
func newIterator(v any, keyFor KeyFunc, u *uniquer) Iterator {
	switch c := v.(type) {
	case nil:
		return emptyIterator{}
	case Delegate:
		return &delegateIterator{delegate: c, keyFor: keyFor, u: u}
	case []any:
		return &listIterator{values: c, keyFor: keyFor, u: u}
	case iter.Seq[any]:
		return &listIterator{values: slices.Collect(c), keyFor: keyFor, u: u}
	case func(func(any) bool):
		return &listIterator{values: slices.Collect(iter.Seq[any](c)), keyFor: keyFor, u: u}
	case iter.Seq2[any, any]:
		return collectSeq2(c, keyFor, u)
	case func(func(any, any) bool):
		return collectSeq2(iter.Seq2[any, any](c), keyFor, u)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		values := make([]any, rv.Len())
		for i := range values {
			values[i] = rv.Index(i).Interface()
		}
		return &listIterator{values: values, keyFor: keyFor, u: u}
	case reflect.Map:
		return mapIterator(rv, keyFor, u)
	case reflect.Pointer:
		if rv.IsNil() {
			return emptyIterator{}
		}
		if k := rv.Elem().Kind(); k == reflect.Slice || k == reflect.Array {
			return newIterator(rv.Elem().Interface(), keyFor, u)
		}
	}
	return emptyIterator{}
}

type emptyIterator struct{}

func (emptyIterator) IsEmpty() bool      { return true }
func (emptyIterator) Next() (Item, bool) { return Item{}, false }

// listIterator walks a materialized list. A nil memos slice means the
// memo is the index.
type listIterator struct {
	values []any
	memos  []any
	pos    int
	keyFor KeyFunc
	u      *uniquer
}

func (it *listIterator) IsEmpty() bool {
	return len(it.values) == 0
}

func (it *listIterator) Next() (Item, bool) {
	if it.pos >= len(it.values) {
		return Item{}, false
	}
	pos := it.pos
	it.pos++

	value := it.values[pos]
	var memo any = pos
	if it.memos != nil {
		memo = it.memos[pos]
	}
	return Item{
		Key:   it.u.key(it.keyFor(value, memo, pos)),
		Value: value,
		Memo:  memo,
	}, true
}

func collectSeq2(seq iter.Seq2[any, any], keyFor KeyFunc, u *uniquer) *listIterator {
	it := &listIterator{memos: []any{}, keyFor: keyFor, u: u}
	for memo, value := range seq {
		it.memos = append(it.memos, memo)
		it.values = append(it.values, value)
	}
	return it
}

func mapIterator(rv reflect.Value, keyFor KeyFunc, u *uniquer) *listIterator {
	keys := rv.MapKeys()
	slices.SortFunc(keys, compareMapKeys)

	it := &listIterator{
		values: make([]any, len(keys)),
		memos:  make([]any, len(keys)),
		keyFor: keyFor,
		u:      u,
	}
	for i, k := range keys {
		it.memos[i] = k.Interface()
		it.values[i] = rv.MapIndex(k).Interface()
	}
	return it
}

func compareMapKeys(a, b reflect.Value) int {
	switch {
	case a.CanInt() && b.CanInt():
		return cmp.Compare(a.Int(), b.Int())
	case a.CanUint() && b.CanUint():
		return cmp.Compare(a.Uint(), b.Uint())
	case a.CanFloat() && b.CanFloat():
		return cmp.Compare(a.Float(), b.Float())
	case a.Kind() == reflect.String && b.Kind() == reflect.String:
		return cmp.Compare(a.String(), b.String())
	}
	return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}

// delegateIterator pulls items from a Delegate on demand.
type delegateIterator struct {
	delegate Delegate
	pos      int
	keyFor   KeyFunc
	u        *uniquer
}

func (it *delegateIterator) IsEmpty() bool {
	return it.delegate.IsEmpty()
}

func (it *delegateIterator) Next() (Item, bool) {
	value, memo, ok := it.delegate.Next()
	if !ok {
		return Item{}, false
	}
	pos := it.pos
	it.pos++
	return Item{
		Key:   it.u.key(it.keyFor(value, memo, pos)),
		Value: value,
		Memo:  memo,
	}, true
}
