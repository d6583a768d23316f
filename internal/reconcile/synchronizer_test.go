package reconcile

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/revtrack/internal/iterable"
	"github.com/roach88/revtrack/internal/reference"
	"github.com/roach88/revtrack/internal/tag"
)

type record struct {
	Op     Op
	Key    any
	Before any
	Env    string
}

// recorder is a Delegate that records every callback.
type recorder struct {
	ops    []record
	failOn Op
}

var errInjected = errors.New("injected failure")

func (r *recorder) add(op Op, env string, key, before any) error {
	if op == r.failOn {
		return errInjected
	}
	r.ops = append(r.ops, record{Op: op, Key: key, Before: before, Env: env})
	return nil
}

func (r *recorder) Retain(env string, key any, _ *Item) error {
	return r.add(OpRetain, env, key, nil)
}

func (r *recorder) Append(env string, key any, _ *Item) error {
	return r.add(OpAppend, env, key, nil)
}

func (r *recorder) Insert(env string, key any, _ *Item, before any) error {
	return r.add(OpInsert, env, key, before)
}

func (r *recorder) Move(env string, key any, _ *Item, before any) error {
	return r.add(OpMove, env, key, before)
}

func (r *recorder) Delete(env string, key any) error {
	return r.add(OpDelete, env, key, nil)
}

func (r *recorder) Done(env string) error {
	return r.add(OpDone, env, nil, nil)
}

type opCounter struct {
	ops    map[Op]int
	passes []int
}

func (c *opCounter) ObserveOp(op Op)     { c.ops[op]++ }
func (c *opCounter) ObservePass(ops int) { c.passes = append(c.passes, ops) }

type fixture struct {
	list *reference.Mutable[any]
	art  *Artifacts
	sync *Synchronizer[string]
	rec  *recorder
}

func newFixture(t *testing.T, keyPath string, opts ...Option) *fixture {
	t.Helper()
	ctx := tag.NewContext()
	list := reference.NewMutable[any](ctx, nil)
	it, err := iterable.New(ctx, list, keyPath)
	require.NoError(t, err)

	f := &fixture{list: list, art: NewArtifacts(it), rec: &recorder{}}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	f.sync = New(Config[string]{Delegate: f.rec, Artifacts: f.art, Env: "env"}, opts...)
	return f
}

// pass replaces the list with values and runs one pass, returning its ops
// without the trailing done.
func (f *fixture) pass(t *testing.T, values ...any) []record {
	t.Helper()
	if values == nil {
		values = []any{}
	}
	require.NoError(t, f.list.Update(values))
	f.rec.ops = nil
	require.NoError(t, f.sync.Sync())

	require.NotEmpty(t, f.rec.ops)
	last := f.rec.ops[len(f.rec.ops)-1]
	require.Equal(t, OpDone, last.Op, "every pass ends with done")
	return f.rec.ops[:len(f.rec.ops)-1]
}

func opsOf(records []record) []Op {
	out := make([]Op, len(records))
	for i, r := range records {
		out[i] = r.Op
	}
	return out
}

func count(records []record, op Op) int {
	n := 0
	for _, r := range records {
		if r.Op == op {
			n++
		}
	}
	return n
}

// =============================================================================
// Passes
// =============================================================================

func TestSync_FirstPassAppends(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)

	ops := f.pass(t, "a", "b", "c")
	assert.Equal(t, []record{
		{Op: OpAppend, Key: "a", Env: "env"},
		{Op: OpAppend, Key: "b", Env: "env"},
		{Op: OpAppend, Key: "c", Env: "env"},
	}, ops)
	assert.Equal(t, []any{"a", "b", "c"}, f.art.Keys())
	assert.Equal(t, 1, f.sync.Pass())
}

func TestSync_UnchangedListRetainsAll(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "b")

	ops := f.pass(t, "a", "b")
	assert.Equal(t, []Op{OpRetain, OpRetain}, opsOf(ops))
}

func TestSync_NaNKeyIsStable(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	assert.Equal(t, []Op{OpAppend}, opsOf(f.pass(t, math.NaN())))

	for range 2 {
		ops := f.pass(t, math.NaN())
		assert.Equal(t, []Op{OpRetain}, opsOf(ops))
		assert.Equal(t, 1, f.art.Len())
		assert.Len(t, f.art.Keys(), 1)
	}

	assert.Equal(t, []Op{OpDelete}, opsOf(f.pass(t)))
	assert.Zero(t, f.art.Len())
}

func TestSync_RotationOnlyMoves(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "b", "c")

	ops := f.pass(t, "b", "c", "a")
	assert.Zero(t, count(ops, OpInsert))
	assert.Zero(t, count(ops, OpAppend))
	assert.Zero(t, count(ops, OpDelete))
	assert.Equal(t, []record{
		{Op: OpRetain, Key: "b", Env: "env"},
		{Op: OpRetain, Key: "c", Env: "env"},
		{Op: OpMove, Key: "a", Before: End, Env: "env"},
	}, ops)
	assert.Equal(t, []any{"b", "c", "a"}, f.art.Keys())
}

func TestSync_IndexKeysGrowShrinkRegrow(t *testing.T) {
	f := newFixture(t, iterable.KeyIndex)
	f.pass(t, 1, 2, 3, 4)

	ops := f.pass(t, 1, 2, 3, 4, 5, 6)
	assert.Equal(t, []Op{OpRetain, OpRetain, OpRetain, OpRetain, OpAppend, OpAppend}, opsOf(ops))

	ops = f.pass(t)
	assert.Equal(t, 6, count(ops, OpDelete))
	assert.Len(t, ops, 6)
	assert.Zero(t, f.art.Len())

	ops = f.pass(t, 1, 2, 3, 4)
	assert.Equal(t, []Op{OpAppend, OpAppend, OpAppend, OpAppend}, opsOf(ops))
}

func TestSync_InsertInMiddle(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "c")

	ops := f.pass(t, "a", "b", "c")
	assert.Equal(t, []record{
		{Op: OpRetain, Key: "a", Env: "env"},
		{Op: OpInsert, Key: "b", Before: "c", Env: "env"},
		{Op: OpRetain, Key: "c", Env: "env"},
	}, ops)
	assert.Equal(t, []any{"a", "b", "c"}, f.art.Keys())
}

func TestSync_DeleteFromMiddle(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "b", "c")

	ops := f.pass(t, "a", "c")
	assert.Equal(t, []record{
		{Op: OpRetain, Key: "a", Env: "env"},
		{Op: OpRetain, Key: "c", Env: "env"},
		{Op: OpDelete, Key: "b", Env: "env"},
	}, ops)
	assert.Equal(t, []any{"a", "c"}, f.art.Keys())
}

func TestSync_Reverse(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "b", "c", "d")

	ops := f.pass(t, "d", "c", "b", "a")
	assert.Equal(t, []Op{OpRetain, OpMove, OpMove, OpMove}, opsOf(ops))
	assert.Equal(t, []any{"d", "c", "b", "a"}, f.art.Keys())
}

func TestSync_SwapNeighbours(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "b", "c")

	ops := f.pass(t, "b", "a", "c")
	assert.Equal(t, []record{
		{Op: OpRetain, Key: "b", Env: "env"},
		{Op: OpMove, Key: "a", Before: "c", Env: "env"},
		{Op: OpRetain, Key: "c", Env: "env"},
	}, ops)
	assert.Equal(t, []any{"b", "a", "c"}, f.art.Keys())
}

func TestSync_ReplaceAll(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "b")

	ops := f.pass(t, "x", "y")
	assert.Equal(t, []record{
		{Op: OpInsert, Key: "x", Before: "a", Env: "env"},
		{Op: OpInsert, Key: "y", Before: "a", Env: "env"},
		{Op: OpDelete, Key: "a", Env: "env"},
		{Op: OpDelete, Key: "b", Env: "env"},
	}, ops)
	assert.Equal(t, []any{"x", "y"}, f.art.Keys())
}

func TestSync_DuplicatesMoveIndependently(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "x", "x", "y")

	ops := f.pass(t, "y", "x", "x")
	assert.Equal(t, []Op{OpRetain, OpMove, OpMove}, opsOf(ops))

	keys := f.art.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, "y", keys[0])
	assert.Equal(t, "x", keys[1])
	assert.Equal(t, "x", iterable.Label(keys[2]))
}

func TestSync_EveryOpBeforeDeletes(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "b", "c", "d", "e")

	ops := f.pass(t, "e", "z", "c", "a")
	deleting := false
	for _, r := range ops {
		if r.Op == OpDelete {
			deleting = true
			continue
		}
		assert.False(t, deleting, "%s after a delete", r.Op)
	}
	assert.Equal(t, []any{"e", "z", "c", "a"}, f.art.Keys())
}

// =============================================================================
// Item references
// =============================================================================

func TestSync_RetainUpdatesMemo(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "b")
	a := f.art.Get("a")
	memoRef := a.Memo
	assert.Equal(t, 0, a.Memo.Peek())

	f.pass(t, "b", "a")
	assert.Same(t, a, f.art.Get("a"))
	assert.Same(t, memoRef, a.Memo)
	assert.Equal(t, 1, a.Memo.Peek())
}

type row struct {
	ID    string
	Label string
}

func TestSync_ValueReferenceIsUpdatedInPlace(t *testing.T) {
	f := newFixture(t, "id")
	first := &row{ID: "r1", Label: "old"}
	f.pass(t, first)
	item := f.art.Get("r1")
	valueRef := item.Value
	snapshot := tag.Value(valueRef.Tag())

	second := &row{ID: "r1", Label: "new"}
	ops := f.pass(t, second)
	assert.Equal(t, []Op{OpRetain}, opsOf(ops))
	assert.Same(t, valueRef, f.art.Get("r1").Value)
	assert.Same(t, second, valueRef.Peek())
	assert.False(t, tag.Validate(valueRef.Tag(), snapshot))
}

// =============================================================================
// Guard
// =============================================================================

func newItem(ctx *tag.Context, key any) *Item {
	return &Item{
		Key:   key,
		Value: reference.NewMutable[any](ctx, key),
		Memo:  reference.NewMutable[any](ctx, 0),
	}
}

func TestGuard_DifferentItemSameKeyInPass(t *testing.T) {
	ctx := tag.NewContext()
	rec := &recorder{}
	g := NewGuard[string](rec)
	itemA, itemB := newItem(ctx, "k"), newItem(ctx, "k")

	require.NoError(t, g.Retain("env", "k", itemA))
	err := g.Move("env", "k", itemB, End)
	require.Error(t, err)
	assert.True(t, IsUnstableReference(err))
	assert.Contains(t, err.Error(), "op=move")
	assert.Len(t, rec.ops, 1, "the violating call never reaches the delegate")
}

func TestGuard_SameItemIsFine(t *testing.T) {
	ctx := tag.NewContext()
	g := NewGuard[string](&recorder{})
	item := newItem(ctx, "k")

	require.NoError(t, g.Append("env", "k", item))
	require.NoError(t, g.Done("env"))
	require.NoError(t, g.Retain("env", "k", item))
	require.NoError(t, g.Move("env", "k", item, End))
}

func TestGuard_ValueReferenceChangedAcrossPasses(t *testing.T) {
	ctx := tag.NewContext()
	g := NewGuard[string](&recorder{})
	item := newItem(ctx, "k")
	require.NoError(t, g.Append("env", "k", item))
	require.NoError(t, g.Done("env"))

	imposter := newItem(ctx, "k")
	err := g.Retain("env", "k", imposter)
	require.Error(t, err)
	assert.True(t, IsUnstableReference(err))
}

func TestGuard_DeleteForgetsReference(t *testing.T) {
	ctx := tag.NewContext()
	g := NewGuard[string](&recorder{})
	require.NoError(t, g.Append("env", "k", newItem(ctx, "k")))
	require.NoError(t, g.Done("env"))

	require.NoError(t, g.Delete("env", "k"))
	require.NoError(t, g.Done("env"))
	require.NoError(t, g.Append("env", "k", newItem(ctx, "k")))
}

// =============================================================================
// Errors and observation
// =============================================================================

func TestSync_DelegateErrorAbortsPass(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "c")

	f.rec.failOn = OpInsert
	require.NoError(t, f.list.Update([]any{"a", "b", "c"}))
	err := f.sync.Sync()
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.Contains(t, err.Error(), "sync pass 2")
	assert.Equal(t, 1, f.sync.Pass())

	assert.Equal(t, []any{"a", "c"}, f.art.Keys(), "refused insert is not rendered")

	f.rec.failOn = ""
	ops := f.pass(t, "a", "c")
	assert.Equal(t, []Op{OpRetain, OpRetain}, opsOf(ops))
	assert.Equal(t, []any{"a", "c"}, f.art.Keys())
}

func TestSync_RefusedInsertIsRetriedNextPass(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a")

	f.rec.failOn = OpAppend
	require.NoError(t, f.list.Update([]any{"a", "b"}))
	require.ErrorIs(t, f.sync.Sync(), errInjected)
	assert.Equal(t, 1, f.art.Len())

	f.rec.failOn = ""
	ops := f.pass(t, "a", "b")
	require.Equal(t, []Op{OpRetain, OpAppend}, opsOf(ops))
	assert.Equal(t, "b", ops[1].Key)
}

func TestSync_RefusedMoveKeepsOrder(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "b", "c")

	f.rec.failOn = OpMove
	require.NoError(t, f.list.Update([]any{"b", "c", "a"}))
	require.ErrorIs(t, f.sync.Sync(), errInjected)
	assert.Equal(t, []any{"a", "b", "c"}, f.art.Keys())

	f.rec.failOn = ""
	ops := f.pass(t, "b", "c", "a")
	assert.Equal(t, 1, count(ops, OpMove))
	assert.Equal(t, []any{"b", "c", "a"}, f.art.Keys())
}

func TestSync_RefusedDeleteKeepsItem(t *testing.T) {
	f := newFixture(t, iterable.KeyIdentity)
	f.pass(t, "a", "b")

	f.rec.failOn = OpDelete
	require.NoError(t, f.list.Update([]any{"a"}))
	require.ErrorIs(t, f.sync.Sync(), errInjected)
	assert.Equal(t, []any{"a", "b"}, f.art.Keys())

	f.rec.failOn = ""
	ops := f.pass(t, "a")
	require.Equal(t, []Op{OpRetain, OpDelete}, opsOf(ops))
	assert.Equal(t, "b", ops[1].Key)
	assert.Equal(t, []any{"a"}, f.art.Keys())
}

func TestSync_Observer(t *testing.T) {
	obs := &opCounter{ops: make(map[Op]int)}
	f := newFixture(t, iterable.KeyIdentity, WithObserver(obs))

	f.pass(t, "a", "b")
	f.pass(t, "b")

	assert.Equal(t, 2, obs.ops[OpAppend])
	assert.Equal(t, 1, obs.ops[OpRetain])
	assert.Equal(t, 1, obs.ops[OpDelete])
	assert.Equal(t, 2, obs.ops[OpDone])
	assert.Equal(t, []int{2, 2}, obs.passes)
}
