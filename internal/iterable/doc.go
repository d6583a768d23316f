// Package iterable turns a reference to a collection into an ordered
// sequence of keyed items.
//
// Each item carries a Key that identifies it within one pass, the Value
// itself, and a Memo (the index for lists, the map key for maps). Keys are
// produced by a key strategy:
//
//	@index     the position in the sequence
//	@key       the memo
//	@identity  the value itself (the default)
//	a.b.c      the value read at a dotted property path
//
// Every strategy runs through a uniqueness wrapper, so repeated raw keys
// within one pass become distinct *UniqueKey values. The same (raw key,
// occurrence) pair always yields the same *UniqueKey for the lifetime of
// the Iterable, which lets a diff retain or move repeated values
// independently.
package iterable
