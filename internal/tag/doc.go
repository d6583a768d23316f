// Package tag implements revision-based invalidation for incremental computation.
//
// A Tag is a node in a DAG of invalidation dependencies whose value is a
// logical timestamp (Revision). Computations snapshot the value of the tags
// they read and later call Validate to learn, cheaply, whether any of those
// tags changed since the snapshot.
//
// # Revision Clock
//
// Every Context owns exactly one monotonic Clock. The clock only moves
// forward, and it moves whenever a dirtyable or updatable tag is dirtied.
// Two independent render sessions use two Contexts and never share a clock.
//
// # Tag Kinds
//
//   - Constant: the process-wide singleton Constant, value 0, never dirtied
//   - Dirtyable: revision set to clock.Next() on every Dirty
//   - Updatable: Dirtyable plus zero-or-one subtag set through Update
//   - Combinator: the max of an immutable list of subtags (see Combine)
//   - Volatile: always reports VolatileRevision, so it never validates
//   - Current: always reports the current clock value
//
// Combinator and updatable tags memoize their value for one clock tick.
//
// # Autotracking
//
// A Context also owns a stack of tracking frames. While a frame is active,
// every tag passed to Consume is recorded in it. PopTrackFrame folds the
// recorded tags into one derived tag and registers that tag with the outer
// frame, so nested tracked computations compose:
//
//	prev := ctx.PushTrackFrame()
//	v := compute() // reads call ctx.Consume(tag)
//	deps := ctx.PopTrackFrame(prev)
//	snapshot := tag.Value(deps)
//	...
//	if !tag.Validate(deps, snapshot) {
//	    // recompute
//	}
//
// # Concurrency
//
// A Context and every tag created from it are single-threaded. All
// operations run to completion on the caller's stack; no locks are taken.
package tag
