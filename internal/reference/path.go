package reference

import "github.com/roach88/revtrack/internal/tag"

// pathCache is the single-slot memo shared by property references. Unlike
// Cached, the tag is fixed at construction and compute keeps it current.
type pathCache struct {
	tag          *tag.Tag
	lastRevision tag.Revision
	lastValue    any
	computed     bool
}

func (p *pathCache) value(ctx *tag.Context, compute func() any) any {
	if !p.computed || !tag.Validate(p.tag, p.lastRevision) {
		p.lastValue = compute()
		p.lastRevision = tag.Value(p.tag)
		p.computed = true
	}
	ctx.Consume(p.tag)
	return p.lastValue
}

// children caches one child reference per property key.
type children map[string]*NestedProperty

func (c *children) get(ctx *tag.Context, getter Getter, parent PathReference, key string) *NestedProperty {
	if *c == nil {
		*c = make(children)
	}
	if ref, ok := (*c)[key]; ok {
		return ref
	}
	ref := newNestedProperty(ctx, getter, parent, key)
	(*c)[key] = ref
	return ref
}

// Root is a constant path reference to a value whose properties are tracked.
type Root struct {
	ctx    *tag.Context
	getter Getter
	value  any
	props  map[string]*RootProperty
}

// NewRoot returns a path reference rooted at v. Property reads use getter.
func NewRoot(ctx *tag.Context, getter Getter, v any) *Root {
	return &Root{ctx: ctx, getter: getter, value: v}
}

func (r *Root) Value() any    { return r.value }
func (r *Root) IsConst() bool { return true }
func (r *Root) Tag() *tag.Tag { return tag.Constant }

// Get returns the reference for v.key. The same key always yields the same reference.
func (r *Root) Get(key string) PathReference {
	if r.props == nil {
		r.props = make(map[string]*RootProperty)
	}
	if ref, ok := r.props[key]; ok {
		return ref
	}
	ref := &RootProperty{
		ctx:    r.ctx,
		getter: r.getter,
		parent: r.value,
		key:    key,
	}
	ref.propertyTag = r.ctx.NewUpdatableTag()
	ref.cache.tag = ref.propertyTag
	r.props[key] = ref
	return ref
}

// RootProperty reads one property of a root value. Its tag is an updatable
// tag that follows whatever the property read consumed.
type RootProperty struct {
	ctx         *tag.Context
	getter      Getter
	parent      any
	key         string
	propertyTag *tag.Tag
	cache       pathCache
	kids        children
}

func (r *RootProperty) Value() any {
	return r.cache.value(r.ctx, r.compute)
}

func (r *RootProperty) IsConst() bool { return false }
func (r *RootProperty) Tag() *tag.Tag { return r.propertyTag }

func (r *RootProperty) Get(key string) PathReference {
	return r.kids.get(r.ctx, r.getter, r, key)
}

func (r *RootProperty) compute() any {
	var v any
	t := r.ctx.Track(func() {
		v = r.getter.Get(r.parent, r.key)
	})
	mustUpdate(r.propertyTag, t)
	return v
}

// NestedProperty reads a property of another path reference's value. Its
// tag combines the parent's tag with the tag of its own property read.
type NestedProperty struct {
	ctx         *tag.Context
	getter      Getter
	parent      PathReference
	key         string
	propertyTag *tag.Tag
	cache       pathCache
	kids        children
}

func newNestedProperty(ctx *tag.Context, getter Getter, parent PathReference, key string) *NestedProperty {
	n := &NestedProperty{
		ctx:         ctx,
		getter:      getter,
		parent:      parent,
		key:         key,
		propertyTag: ctx.NewUpdatableTag(),
	}
	n.cache.tag = ctx.Combine(parent.Tag(), n.propertyTag)
	return n
}

func (n *NestedProperty) Value() any {
	return n.cache.value(n.ctx, n.compute)
}

func (n *NestedProperty) IsConst() bool { return false }
func (n *NestedProperty) Tag() *tag.Tag { return n.cache.tag }

func (n *NestedProperty) Get(key string) PathReference {
	return n.kids.get(n.ctx, n.getter, n, key)
}

func (n *NestedProperty) compute() any {
	parent := n.parent.Value()
	if parent == nil {
		mustUpdate(n.propertyTag, tag.Constant)
		return nil
	}

	var v any
	t := n.ctx.Track(func() {
		v = n.getter.Get(parent, n.key)
	})
	mustUpdate(n.propertyTag, t)
	return v
}

// mustUpdate updates a tag this package created as updatable.
func mustUpdate(t, sub *tag.Tag) {
	if err := tag.Update(t, sub); err != nil {
		panic(err)
	}
}
