package iterable

import "fmt"

// UniqueKey replaces the Count-th repeat (Count >= 1) of a raw key within
// one pass. Compare UniqueKeys by pointer.
type UniqueKey struct {
	Value any
	Count int
}

func (k *UniqueKey) String() string {
	return fmt.Sprintf("%v#%d", k.Value, k.Count)
}

// Label returns the raw key behind k, or k itself if it is not a *UniqueKey.
func Label(k any) any {
	if uk, ok := k.(*UniqueKey); ok {
		return uk.Value
	}
	return k
}

// keyTable memoizes UniqueKeys per raw key and occurrence.
type keyTable struct {
	keys map[any][]*UniqueKey
}

func newKeyTable() *keyTable {
	return &keyTable{keys: make(map[any][]*UniqueKey)}
}

func (t *keyTable) get(raw any, count int) *UniqueKey {
	list := t.keys[raw]
	for len(list) < count {
		list = append(list, &UniqueKey{Value: raw, Count: len(list) + 1})
	}
	t.keys[raw] = list
	return list[count-1]
}

// uniquer counts raw keys within one pass.
type uniquer struct {
	table *keyTable
	seen  map[any]int
}

func newUniquer(table *keyTable) *uniquer {
	return &uniquer{table: table, seen: make(map[any]int)}
}

func (u *uniquer) key(raw any) any {
	n := u.seen[raw]
	u.seen[raw] = n + 1
	if n == 0 {
		return raw
	}
	return u.table.get(raw, n)
}
