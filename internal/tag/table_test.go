package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ X, Y int }

func TestTable_TagForIsStable(t *testing.T) {
	ctx := NewContext()
	table := NewTable(ctx)
	obj := &point{}

	x := table.TagFor(obj, "X")
	assert.Same(t, x, table.TagFor(obj, "X"))
	assert.NotSame(t, x, table.TagFor(obj, "Y"))
	assert.NotSame(t, x, table.TagFor(&point{}, "X"))
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 2, table.Objects())
}

func TestTable_ValuesWithoutIdentity(t *testing.T) {
	table := NewTable(NewContext())

	assert.Same(t, Constant, table.TagFor(nil, "x"))
	assert.Same(t, Constant, table.TagFor(point{}, "X"))
	assert.Same(t, Constant, table.TagFor("str", "length"))
	assert.NoError(t, table.Dirty(point{}, "X"))
	assert.Equal(t, 0, table.Len())
}

func TestTable_MapsHaveIdentity(t *testing.T) {
	table := NewTable(NewContext())
	m := map[string]any{"a": 1}

	id1, ok := table.Identify(m)
	require.True(t, ok)
	id2, _ := table.Identify(m)
	assert.Equal(t, id1, id2)
}

func TestTable_DirtyInvalidatesOnlyThatProperty(t *testing.T) {
	ctx := NewContext()
	table := NewTable(ctx)
	obj := &point{}

	x, y := table.TagFor(obj, "X"), table.TagFor(obj, "Y")
	sx, sy := Value(x), Value(y)

	require.NoError(t, table.Dirty(obj, "X"))
	assert.False(t, Validate(x, sx))
	assert.True(t, Validate(y, sy))

	// Unread properties have no tag to dirty.
	assert.NoError(t, table.Dirty(obj, "Z"))
	assert.NoError(t, table.Dirty(&point{}, "X"))
}

func TestTable_ReleaseReusesSlots(t *testing.T) {
	table := NewTable(NewContext())
	a, b := &point{}, &point{}

	table.TagFor(a, "X")
	table.TagFor(a, "Y")
	table.Release(a)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 0, table.Objects())

	table.TagFor(b, "X")
	assert.Equal(t, 1, table.Len())
	assert.Len(t, table.slots, 2, "released slots are reused")

	table.Release(&point{})
	table.Release(nil)
}

func TestTable_PropertyInterning(t *testing.T) {
	table := NewTable(NewContext())
	assert.Equal(t, table.Property("name"), table.Property("name"))
	assert.NotEqual(t, table.Property("name"), table.Property("id"))
}
