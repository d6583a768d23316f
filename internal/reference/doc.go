// Package reference wraps computations and property reads behind a
// cacheable Value/IsConst contract.
//
// A Reference pairs a value with a tag describing when the value must be
// recomputed. Renderers snapshot tag.Value(ref.Tag()) after reading and
// later call tag.Validate to decide whether to read again.
//
// Kinds of references:
//   - Const: a fixed value with the Constant tag
//   - Mutable: a root value that dirties its own tag on Update
//   - Cached: a memoized computation whose dependencies are autotracked
//   - Root, RootProperty, NestedProperty: path references that chain
//     property reads, so dirtying one property on a nested object
//     invalidates exactly the path references that read it
//
// Property reads go through a Getter. Store is the default Getter: it owns
// a tag.Table and consumes the (object, property) tag on every read.
package reference
