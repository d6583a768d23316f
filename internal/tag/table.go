package tag

import "reflect"

// ObjectID identifies an object registered with a Table.
type ObjectID uint64

// PropertyID identifies an interned property name of a Table.
type PropertyID uint32

type slotKey struct {
	object   ObjectID
	property PropertyID
}

type objectKey struct {
	typ reflect.Type
	ptr uintptr
}

// Table is a side table of per-property tags for tracked objects.
//
// Tags live in an arena indexed by (ObjectID, PropertyID). The table is
// owned by whichever component owns the tracked objects and is torn down
// with it; Release drops one object's tags.
//
// Only pointers and maps have identity. Registered objects are retained
// by the table until released, so their addresses are never reused while
// tags for them exist.
type Table struct {
	ctx *Context

	ids     map[objectKey]ObjectID
	objects map[ObjectID]any
	nextID  ObjectID

	names map[string]PropertyID

	slots []*Tag
	free  []int
	index map[slotKey]int
	props map[ObjectID][]PropertyID
}

// NewTable creates an empty tag table bound to ctx.
func NewTable(ctx *Context) *Table {
	return &Table{
		ctx:     ctx,
		ids:     make(map[objectKey]ObjectID),
		objects: make(map[ObjectID]any),
		names:   make(map[string]PropertyID),
		index:   make(map[slotKey]int),
		props:   make(map[ObjectID][]PropertyID),
	}
}

// Identify returns the ObjectID for obj, registering it on first use.
// Returns false for values without identity (nil, scalars, structs).
func (t *Table) Identify(obj any) (ObjectID, bool) {
	key, ok := identityOf(obj)
	if !ok {
		return 0, false
	}
	if id, ok := t.ids[key]; ok {
		return id, true
	}
	t.nextID++
	id := t.nextID
	t.ids[key] = id
	t.objects[id] = obj
	return id, true
}

// Property interns a property name.
func (t *Table) Property(name string) PropertyID {
	if id, ok := t.names[name]; ok {
		return id
	}
	id := PropertyID(len(t.names) + 1)
	t.names[name] = id
	return id
}

// TagFor returns the tag tracking obj.property, creating it on first use.
// Values without identity get Constant: they cannot change in place.
func (t *Table) TagFor(obj any, property string) *Tag {
	oid, ok := t.Identify(obj)
	if !ok {
		return Constant
	}
	key := slotKey{object: oid, property: t.Property(property)}
	if i, ok := t.index[key]; ok {
		return t.slots[i]
	}

	tg := t.ctx.NewTag()
	var i int
	if n := len(t.free); n > 0 {
		i = t.free[n-1]
		t.free = t.free[:n-1]
		t.slots[i] = tg
	} else {
		i = len(t.slots)
		t.slots = append(t.slots, tg)
	}
	t.index[key] = i
	t.props[oid] = append(t.props[oid], key.property)
	return tg
}

// Dirty dirties the tag for obj.property. Objects without identity and
// properties never read have nothing to invalidate.
func (t *Table) Dirty(obj any, property string) error {
	key, ok := identityOf(obj)
	if !ok {
		return nil
	}
	oid, ok := t.ids[key]
	if !ok {
		return nil
	}
	pid, ok := t.names[property]
	if !ok {
		return nil
	}
	i, ok := t.index[slotKey{object: oid, property: pid}]
	if !ok {
		return nil
	}
	return Dirty(t.slots[i])
}

// Release drops all tags for obj and forgets its identity.
func (t *Table) Release(obj any) {
	key, ok := identityOf(obj)
	if !ok {
		return
	}
	oid, ok := t.ids[key]
	if !ok {
		return
	}
	for _, pid := range t.props[oid] {
		sk := slotKey{object: oid, property: pid}
		i := t.index[sk]
		t.slots[i] = nil
		t.free = append(t.free, i)
		delete(t.index, sk)
	}
	delete(t.props, oid)
	delete(t.objects, oid)
	delete(t.ids, key)
}

// Len returns the number of live property tags.
func (t *Table) Len() int {
	return len(t.index)
}

// Objects returns the number of registered objects.
func (t *Table) Objects() int {
	return len(t.objects)
}

func identityOf(obj any) (objectKey, bool) {
	if obj == nil {
		return objectKey{}, false
	}
	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return objectKey{}, false
		}
		return objectKey{typ: rv.Type(), ptr: rv.Pointer()}, true
	default:
		return objectKey{}, false
	}
}
