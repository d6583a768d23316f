package tag

import "sync/atomic"

// Clock is the monotonic revision counter of a Context.
//
// The counter starts at InitialRevision and is only advanced by Next. It is
// never reset while tags created against it are alive (see Context.Reset).
type Clock struct {
	rev atomic.Int64
}

// NewClock creates a clock positioned at InitialRevision.
func NewClock() *Clock {
	return NewClockAt(InitialRevision)
}

// NewClockAt creates a clock positioned at a specific revision.
// Used by tests that need to start from a known point.
func NewClockAt(start Revision) *Clock {
	c := &Clock{}
	c.rev.Store(int64(start))
	return c
}

// Next advances the clock and returns the new revision.
func (c *Clock) Next() Revision {
	return Revision(c.rev.Add(1))
}

// Current returns the current revision without advancing.
func (c *Clock) Current() Revision {
	return Revision(c.rev.Load())
}
