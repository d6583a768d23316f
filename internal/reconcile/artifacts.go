package reconcile

import (
	"github.com/roach88/revtrack/internal/iterable"
	"github.com/roach88/revtrack/internal/reference"
	"github.com/roach88/revtrack/internal/tag"
)

const none int32 = -1

// Item is the handle of one rendered element. Value and Memo are created
// when the key first appears and updated in place on later passes.
type Item struct {
	Key   any
	Value *reference.Mutable[any]
	Memo  *reference.Mutable[any]

	slot     int32
	retained bool
	seen     bool
}

type slot struct {
	item       *Item
	prev, next int32
}

// Artifacts is the persistent state of a keyed list between passes: the
// rendered items in order, indexed by key.
type Artifacts struct {
	iterable *iterable.Iterable

	slots []slot
	free  []int32
	head  int32
	tail  int32
	index map[any]int32

	iterator iterable.Iterator
}

// NewArtifacts creates empty artifacts for it.
func NewArtifacts(it *iterable.Iterable) *Artifacts {
	return &Artifacts{
		iterable: it,
		head:     none,
		tail:     none,
		index:    make(map[any]int32),
	}
}

// Tag returns the tag of the underlying collection.
func (a *Artifacts) Tag() *tag.Tag {
	return a.iterable.Tag()
}

// IsEmpty reports whether the collection's current value has no items.
// The iterator it opens is reused by the next Iterate.
func (a *Artifacts) IsEmpty() bool {
	a.iterator = a.iterable.Iterate()
	return a.iterator.IsEmpty()
}

// Iterate returns an iterator over the collection's current value.
func (a *Artifacts) Iterate() iterable.Iterator {
	it := a.iterator
	a.iterator = nil
	if it == nil {
		it = a.iterable.Iterate()
	}
	return it
}

// Has reports whether key is rendered.
func (a *Artifacts) Has(key any) bool {
	_, ok := a.index[key]
	return ok
}

// Get returns the rendered item for key, or nil.
func (a *Artifacts) Get(key any) *Item {
	if i, ok := a.index[key]; ok {
		return a.slots[i].item
	}
	return nil
}

// Head returns the first rendered item, or nil.
func (a *Artifacts) Head() *Item {
	return a.at(a.head)
}

// Next returns the item after it, or nil at the tail.
func (a *Artifacts) Next(it *Item) *Item {
	return a.at(a.slots[it.slot].next)
}

// Len returns the number of rendered items.
func (a *Artifacts) Len() int {
	return len(a.index)
}

// Keys returns the rendered keys in order.
func (a *Artifacts) Keys() []any {
	keys := make([]any, 0, len(a.index))
	for it := a.Head(); it != nil; it = a.Next(it) {
		keys = append(keys, it.Key)
	}
	return keys
}

func (a *Artifacts) at(i int32) *Item {
	if i == none {
		return nil
	}
	return a.slots[i].item
}

// insertBefore creates the handle for entry and links it before ref
// (nil appends).
func (a *Artifacts) insertBefore(entry iterable.Item, ref *Item) *Item {
	it := &Item{
		Key:      entry.Key,
		Value:    a.iterable.ValueReferenceFor(entry),
		Memo:     a.iterable.MemoReferenceFor(entry),
		retained: true,
	}

	var i int32
	if n := len(a.free); n > 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[i] = slot{item: it}
	} else {
		i = int32(len(a.slots))
		a.slots = append(a.slots, slot{item: it})
	}
	it.slot = i
	a.index[entry.Key] = i
	a.link(i, ref)
	return it
}

// move relinks it before ref (nil moves it to the tail).
func (a *Artifacts) move(it, ref *Item) {
	if ref == it {
		return
	}
	a.unlink(it.slot)
	a.link(it.slot, ref)
}

// remove unlinks it and frees its slot.
func (a *Artifacts) remove(it *Item) {
	a.unlink(it.slot)
	delete(a.index, it.Key)
	a.slots[it.slot] = slot{}
	a.free = append(a.free, it.slot)
	it.slot = none
}

// update refreshes the item's references from entry and marks it retained.
func (a *Artifacts) update(it *Item, entry iterable.Item) error {
	it.retained = true
	if err := a.iterable.UpdateValueReference(it.Value, entry); err != nil {
		return err
	}
	return a.iterable.UpdateMemoReference(it.Memo, entry)
}

// clearMarks drops the per-pass retained and seen marks.
func (a *Artifacts) clearMarks() {
	for it := a.Head(); it != nil; it = a.Next(it) {
		it.retained = false
		it.seen = false
	}
}

func (a *Artifacts) link(i int32, ref *Item) {
	s := &a.slots[i]
	if ref == nil {
		s.prev, s.next = a.tail, none
		if a.tail != none {
			a.slots[a.tail].next = i
		} else {
			a.head = i
		}
		a.tail = i
		return
	}

	r := ref.slot
	s.prev, s.next = a.slots[r].prev, r
	if s.prev != none {
		a.slots[s.prev].next = i
	} else {
		a.head = i
	}
	a.slots[r].prev = i
}

func (a *Artifacts) unlink(i int32) {
	s := &a.slots[i]
	if s.prev != none {
		a.slots[s.prev].next = s.next
	} else {
		a.head = s.next
	}
	if s.next != none {
		a.slots[s.next].prev = s.prev
	} else {
		a.tail = s.prev
	}
	s.prev, s.next = none, none
}
