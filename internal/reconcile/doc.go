// Package reconcile diffs successive passes of a keyed iteration.
//
// Artifacts holds the items rendered by the previous pass as a doubly
// linked list in an arena. A Synchronizer walks the next pass against that
// list and tells its Delegate, in order, which items to retain, append,
// insert, move and finally delete, then calls Done.
//
// A pass runs in three phases:
//
//	append  walk the new items with a cursor into the old list
//	prune   delete every old item the walk did not retain
//	done    report the end of the pass
//
// Every surviving item gets exactly one callback per pass. An unchanged
// item is reported with Retain, including when the cursor jumps ahead to
// it, so delegates see Retain for items whose position did not change
// and must not treat it as a visible mutation.
//
// A delegate error aborts the pass. The refused insert, append, move or
// delete is not applied, so the next pass starts from the order the
// delegate last accepted.
//
// Items keep the same value and memo references for as long as their key
// stays in the list. Every delegate is wrapped in a Guard that fails the
// pass with UNSTABLE_REFERENCE if a key is ever handed a different item.
package reconcile
