package reference

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/revtrack/internal/tag"
)

// Getter reads a property of an object. It is the collaborator path
// references and key paths use for every raw property access.
type Getter interface {
	Get(obj any, key string) any
}

// GetterFunc adapts a function to Getter.
type GetterFunc func(obj any, key string) any

func (f GetterFunc) Get(obj any, key string) any {
	return f(obj, key)
}

// Untracked reads properties without consuming any tag.
var Untracked Getter = GetterFunc(ReadProperty)

// ReadPath applies g to each dot-separated segment of path in turn.
// A nil intermediate value ends the walk with nil.
func ReadPath(g Getter, obj any, path string) any {
	cur := obj
	for _, seg := range strings.Split(path, ".") {
		if cur == nil {
			return nil
		}
		cur = g.Get(cur, seg)
	}
	return cur
}

// Store is a Getter that tracks property reads.
//
// Every Get consumes the tag for (obj, key) from the store's tag.Table, and
// Set dirties exactly that tag before writing the property. Objects need
// identity (pointers or maps) to be tracked; reads of other values are
// untracked since they cannot change in place.
type Store struct {
	ctx   *tag.Context
	table *tag.Table
}

// NewStore creates a tracked property store bound to ctx.
func NewStore(ctx *tag.Context) *Store {
	return &Store{ctx: ctx, table: tag.NewTable(ctx)}
}

// Get reads obj.key and records the read in the active tracking frame.
func (s *Store) Get(obj any, key string) any {
	s.ctx.Consume(s.table.TagFor(obj, key))
	return ReadProperty(obj, key)
}

// Set dirties the tag of obj.key and then writes the property. When the
// tag cannot be dirtied the property is left untouched. A failed write
// after a successful dirty only costs readers a recompute.
func (s *Store) Set(obj any, key string, v any) error {
	if err := s.table.Dirty(obj, key); err != nil {
		return err
	}
	return WriteProperty(obj, key, v)
}

// Notify dirties obj.key after the caller mutated it directly.
func (s *Store) Notify(obj any, key string) error {
	return s.table.Dirty(obj, key)
}

// Release forgets every tag of obj.
func (s *Store) Release(obj any) {
	s.table.Release(obj)
}

// Table exposes the store's tag table.
func (s *Store) Table() *tag.Table {
	return s.table
}

// ReadProperty reads a property by name without tracking.
//
// Supported shapes:
//   - maps with string keys: the entry, nil when missing
//   - structs and pointers to structs: the exported field matching key
//     case-insensitively
//   - strings, slices, arrays and maps: "length" is the length
//   - slices and arrays: a decimal key is an index
//
// Anything else reads as nil.
func ReadProperty(obj any, key string) any {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			if v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key())); v.IsValid() {
				return v.Interface()
			}
		}
		if key == "length" {
			return rv.Len()
		}
	case reflect.Struct:
		f := fieldByName(rv, key)
		if f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	case reflect.String:
		if key == "length" {
			return rv.Len()
		}
	case reflect.Slice, reflect.Array:
		if key == "length" {
			return rv.Len()
		}
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < rv.Len() {
			return rv.Index(i).Interface()
		}
	}
	return nil
}

// WriteProperty writes a property by name without dirtying anything.
// Only string-keyed maps and pointers to structs are writable.
func WriteProperty(obj any, key string, v any) error {
	rv := reflect.ValueOf(obj)

	switch {
	case rv.Kind() == reflect.Map:
		if rv.IsNil() {
			return newUnwritable("nil map")
		}
		typ := rv.Type()
		if typ.Key().Kind() != reflect.String {
			return newUnwritable("map key type %s is not a string", typ.Key())
		}
		val, ok := assignable(v, typ.Elem())
		if !ok {
			return newUnwritable("cannot assign %T to map element %s", v, typ.Elem())
		}
		rv.SetMapIndex(reflect.ValueOf(key).Convert(typ.Key()), val)
		return nil

	case rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct:
		f := fieldByName(rv.Elem(), key)
		if !f.IsValid() || !f.CanSet() {
			return newUnwritable("no settable field %q on %s", key, rv.Elem().Type())
		}
		val, ok := assignable(v, f.Type())
		if !ok {
			return newUnwritable("cannot assign %T to field %q of type %s", v, key, f.Type())
		}
		f.Set(val)
		return nil

	default:
		return newUnwritable("cannot write property %q of %T", key, obj)
	}
}

func fieldByName(rv reflect.Value, key string) reflect.Value {
	return rv.FieldByNameFunc(func(name string) bool {
		return strings.EqualFold(name, key)
	})
}

func assignable(v any, typ reflect.Type) (reflect.Value, bool) {
	if v == nil {
		switch typ.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(typ), true
		}
		return reflect.Value{}, false
	}
	val := reflect.ValueOf(v)
	if val.Type().AssignableTo(typ) {
		return val, true
	}
	if val.Type().ConvertibleTo(typ) && val.Kind() != reflect.String && typ.Kind() != reflect.String {
		return val.Convert(typ), true
	}
	return reflect.Value{}, false
}
