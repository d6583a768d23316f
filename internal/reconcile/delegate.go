package reconcile

// Op names a delegate callback.
type Op string

const (
	OpRetain Op = "retain"
	OpAppend Op = "append"
	OpInsert Op = "insert"
	OpMove   Op = "move"
	OpDelete Op = "delete"
	OpDone   Op = "done"
)

// Ops lists every Op in callback order of a typical pass.
var Ops = []Op{OpRetain, OpAppend, OpInsert, OpMove, OpDelete, OpDone}

type endKey struct{}

func (endKey) String() string { return "END" }

// End is the "before" key of an item placed at the tail of the list.
var End any = endKey{}

// Delegate receives the mutations of a pass. The environment value is
// passed through untouched.
//
// Within one pass each key is reported at most once by Retain, Append,
// Insert or Move, always before the deletes, and Done comes last. An error
// from any callback aborts the pass.
type Delegate[E any] interface {
	// Retain reports that item stays in place.
	Retain(env E, key any, item *Item) error

	// Append reports a new item at the tail of the list.
	Append(env E, key any, item *Item) error

	// Insert reports a new item placed before the item keyed before.
	Insert(env E, key any, item *Item, before any) error

	// Move reports an existing item relocated before the item keyed
	// before, or to the tail when before is End.
	Move(env E, key any, item *Item, before any) error

	// Delete reports an item that left the list.
	Delete(env E, key any) error

	// Done ends the pass.
	Done(env E) error
}
