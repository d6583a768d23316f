package tag

import (
	"fmt"
	"math"
)

// Revision is a logical timestamp. Revisions are totally ordered and only
// ever compared, never interpreted.
type Revision int64

const (
	// ConstantRevision is the value of the Constant tag.
	ConstantRevision Revision = 0

	// InitialRevision is the starting clock value and the revision of new tags.
	InitialRevision Revision = 1

	// VolatileRevision is the value of the Volatile tag. No snapshot below it validates.
	VolatileRevision Revision = math.MaxInt64
)

// Kind is the closed set of tag variants.
type Kind uint8

const (
	KindConstant Kind = iota
	KindDirtyable
	KindUpdatable
	KindCombinator
	KindVolatile
	KindCurrent
)

func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindDirtyable:
		return "dirtyable"
	case KindUpdatable:
		return "updatable"
	case KindCombinator:
		return "combinator"
	case KindVolatile:
		return "volatile"
	case KindCurrent:
		return "current"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Tag is an invalidation marker. See the package documentation for kinds.
//
// Only Dirty and Update mutate a tag's inputs. Value memoizes per clock
// tick, which is idempotent for a fixed clock value.
type Tag struct {
	kind Kind
	id   uint64
	ctx  *Context

	revision    Revision
	lastChecked Revision
	lastValue   Revision
	updating    bool
	allowCycles bool

	// Updatable only. subtagCache holds the subtag's value at the time of
	// Update; while it is unchanged the subtag does not move this tag.
	subtag      *Tag
	subtagCache Revision
	hasCache    bool

	// Combinator only. Immutable after construction.
	subtags []*Tag
}

var (
	// Constant is the process-wide constant tag. It always validates.
	Constant = &Tag{kind: KindConstant}

	// Volatile is the process-wide volatile tag. It never validates.
	Volatile = &Tag{kind: KindVolatile}
)

// Kind reports the tag variant.
func (t *Tag) Kind() Kind {
	return t.kind
}

// Subtags returns the members of a combinator tag, or nil for other kinds.
func (t *Tag) Subtags() []*Tag {
	if t.kind != KindCombinator {
		return nil
	}
	out := make([]*Tag, len(t.subtags))
	copy(out, t.subtags)
	return out
}

// AllowCycles exempts t from cycle detection. Re-entrant evaluation of an
// allow-listed tag forces revalidation instead of panicking.
// The sentinel tags are never evaluated re-entrantly and are returned unchanged.
func (t *Tag) AllowCycles() *Tag {
	if t.ctx != nil {
		t.allowCycles = true
	}
	return t
}

func (t *Tag) String() string {
	if t.ctx == nil {
		return t.kind.String()
	}
	return fmt.Sprintf("%s#%d", t.kind, t.id)
}

// Value computes the current revision of t.
//
// Constant returns ConstantRevision and Volatile returns VolatileRevision.
// Current returns the clock's current revision. Every other kind returns
// the max of its own revision and its dependencies, memoized until the
// clock moves.
//
// Re-entrant evaluation of the same tag (a cycle in the dependency graph)
// panics with a CYCLE_DETECTED *Error in debug contexts, unless the tag is
// allow-listed via AllowCycles. Otherwise the tag's checked revision is
// pushed past the clock so the next read recomputes.
func Value(t *Tag) Revision {
	switch t.kind {
	case KindConstant:
		return ConstantRevision
	case KindVolatile:
		return VolatileRevision
	case KindCurrent:
		return t.ctx.clock.Current()
	}
	return t.compute()
}

// Validate reports whether nothing t depends on changed after snapshot.
func Validate(t *Tag, snapshot Revision) bool {
	return snapshot >= Value(t)
}

// Dirty marks t as changed at a fresh revision.
// Only dirtyable and updatable tags can be dirtied.
//
// In debug contexts, dirtying a tag that an active tracking frame has
// already consumed fails with TAG_ALREADY_CONSUMED: the running computation
// would otherwise snapshot a revision that hides its own write.
func Dirty(t *Tag) error {
	if t.kind != KindDirtyable && t.kind != KindUpdatable {
		return newInvalidOperation("dirty", t)
	}
	if t.ctx.debug && t.ctx.consumedInActiveFrame(t) {
		return newConsumedTagError(t)
	}
	t.revision = t.ctx.clock.Next()
	return nil
}

// Update sets the subtag of an updatable tag. Passing Constant clears it.
func Update(t *Tag, subtag *Tag) error {
	if t.kind != KindUpdatable {
		return newInvalidOperation("update", t)
	}
	if subtag == Constant {
		t.subtag = nil
		t.hasCache = false
	} else {
		t.subtagCache = Value(subtag)
		t.hasCache = true
		t.subtag = subtag
	}
	// Drop the memoized value so the next read folds the new subtag.
	t.lastChecked = ConstantRevision
	return nil
}

func (t *Tag) compute() Revision {
	clock := t.ctx.clock
	if t.lastChecked != clock.Current() {
		t.updating = true
		t.lastChecked = clock.Current()
		func() {
			defer func() { t.updating = false }()
			t.lastValue = t.fold()
		}()
	}

	if t.updating {
		if t.ctx.debug && !t.allowCycles {
			panic(newCycleError(t))
		}
		t.lastChecked = clock.Next()
	}

	return t.lastValue
}

func (t *Tag) fold() Revision {
	rev := t.revision

	if t.subtag != nil {
		sub := Value(t.subtag)
		if t.hasCache && sub == t.subtagCache {
			rev = max(rev, t.lastValue)
		} else {
			t.hasCache = false
			rev = max(rev, sub)
		}
	}

	for _, sub := range t.subtags {
		rev = max(rev, Value(sub))
	}

	return rev
}
