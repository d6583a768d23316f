package iterable

import (
	"github.com/roach88/revtrack/internal/reference"
	"github.com/roach88/revtrack/internal/tag"
)

// Option configures an Iterable.
type Option func(*Iterable)

// WithGetter sets the getter used to read key paths (default: untracked reads).
func WithGetter(g reference.Getter) Option {
	return func(i *Iterable) {
		i.getter = g
	}
}

// Iterable is a keyed view over a reference to a collection.
//
// The Iterable owns the UniqueKey table, so repeated values keep the same
// disambiguated keys across passes for as long as the Iterable lives.
type Iterable struct {
	ctx    *tag.Context
	ref    reference.Reference[any]
	path   string
	getter reference.Getter
	keyFor KeyFunc
	keys   *keyTable
}

// New creates an Iterable over ref keyed by keyPath. Invalid key paths are
// rejected here rather than on first iteration.
func New(ctx *tag.Context, ref reference.Reference[any], keyPath string, opts ...Option) (*Iterable, error) {
	i := &Iterable{
		ctx:    ctx,
		ref:    ref,
		path:   keyPath,
		getter: reference.Untracked,
		keys:   newKeyTable(),
	}
	for _, opt := range opts {
		opt(i)
	}

	keyFor, err := KeyFor(keyPath, i.getter)
	if err != nil {
		return nil, err
	}
	i.keyFor = keyFor
	return i, nil
}

// Tag returns the tag of the underlying collection reference.
func (i *Iterable) Tag() *tag.Tag {
	return i.ref.Tag()
}

// KeyPath returns the key strategy the Iterable was created with.
func (i *Iterable) KeyPath() string {
	return i.path
}

// Iterate starts a new pass over the collection's current value.
func (i *Iterable) Iterate() Iterator {
	return newIterator(i.ref.Value(), i.keyFor, newUniquer(i.keys))
}

// ValueReferenceFor creates the per-item value reference for item.
func (i *Iterable) ValueReferenceFor(item Item) *reference.Mutable[any] {
	return reference.NewMutable(i.ctx, item.Value)
}

// MemoReferenceFor creates the per-item memo reference for item.
func (i *Iterable) MemoReferenceFor(item Item) *reference.Mutable[any] {
	return reference.NewMutable(i.ctx, item.Memo)
}

// UpdateValueReference stores item's value in ref, dirtying it only if the value changed.
func (i *Iterable) UpdateValueReference(ref *reference.Mutable[any], item Item) error {
	return ref.Update(item.Value)
}

// UpdateMemoReference stores item's memo in ref, dirtying it only if the memo changed.
func (i *Iterable) UpdateMemoReference(ref *reference.Mutable[any], item Item) error {
	return ref.Update(item.Memo)
}
