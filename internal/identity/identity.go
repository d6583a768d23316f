// Package identity gives arbitrary values a comparable identity.
//
// Keys are used as Go map keys, so they must be comparable. Comparable
// values are their own key. Maps, slices and funcs are keyed by reference
// (type, pointer and, for slices, length). Other non-comparable values
// (structs holding slices, for example) fall back to their printed form.
//
// NaN never equals itself, so floating point NaNs share one key per type.
package identity

import (
	"fmt"
	"math"
	"reflect"
)

type refKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

type printedKey struct {
	typ  reflect.Type
	repr string
}

type nanKey struct {
	typ reflect.Type
}

// Key returns a comparable key for v. Key(nil) is nil.
func Key(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		if math.IsNaN(rv.Float()) {
			return nanKey{typ: rv.Type()}
		}
	case reflect.Complex64, reflect.Complex128:
		if c := rv.Complex(); math.IsNaN(real(c)) || math.IsNaN(imag(c)) {
			return printedKey{typ: rv.Type(), repr: fmt.Sprint(v)}
		}
	}
	if rv.Comparable() {
		return v
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Func:
		return refKey{typ: rv.Type(), ptr: rv.Pointer()}
	case reflect.Slice:
		return refKey{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}
	default:
		return printedKey{typ: rv.Type(), repr: fmt.Sprintf("%#v", v)}
	}
}

// Same reports whether a and b have the same identity.
func Same(a, b any) bool {
	return Key(a) == Key(b)
}
