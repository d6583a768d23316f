package tag

// Frame collects the tags consumed while it is the innermost active frame.
type Frame struct {
	parent *Frame
	tags   []*Tag
	seen   map[*Tag]struct{}
}

// Len returns the number of distinct tags recorded so far.
func (f *Frame) Len() int {
	return len(f.tags)
}

func (f *Frame) add(t *Tag) {
	if t == Constant {
		return
	}
	if f.seen == nil {
		f.seen = make(map[*Tag]struct{})
	}
	if _, ok := f.seen[t]; ok {
		return
	}
	f.seen[t] = struct{}{}
	f.tags = append(f.tags, t)
}

// PushTrackFrame starts a new tracking frame and returns the previously
// active frame (nil at the outermost level). Pass the returned value to
// the matching PopTrackFrame.
func (c *Context) PushTrackFrame() *Frame {
	prev := c.current
	c.current = &Frame{parent: prev}
	c.depth++
	return prev
}

// PopTrackFrame ends the innermost frame, restores old as the active frame
// and returns the combined tag of everything the frame consumed.
//
// When old is non-nil the combined tag is also consumed by old, so a
// computation that reads a tracked value inside another tracked
// computation makes the outer computation depend on the inner one's inputs.
//
// Panics with an UNBALANCED_FRAME *Error if old is not the frame that was
// active when the innermost frame was pushed.
func (c *Context) PopTrackFrame(old *Frame) *Tag {
	f := c.current
	if f == nil || f.parent != old {
		panic(newUnbalancedFrameError())
	}
	c.current = old
	c.depth--

	t := c.Combine(f.tags...)
	if old != nil {
		old.add(t)
	}
	return t
}

// Consume records t in the active frame. Without an active frame it is a no-op.
func (c *Context) Consume(t *Tag) {
	if c.current != nil {
		c.current.add(t)
	}
}

// IsTracking reports whether a tracking frame is active.
func (c *Context) IsTracking() bool {
	return c.current != nil
}

// Depth returns the number of active frames.
func (c *Context) Depth() int {
	return c.depth
}

// Track runs fn inside a new frame and returns the combined tag of what fn
// consumed. The frame is popped even if fn panics.
func (c *Context) Track(fn func()) (t *Tag) {
	prev := c.PushTrackFrame()
	defer func() {
		t = c.PopTrackFrame(prev)
	}()
	fn()
	return t
}

// Untrack runs fn with tracking suspended. Tags fn consumes are not
// recorded by any frame.
func (c *Context) Untrack(fn func()) {
	saved, depth := c.current, c.depth
	c.current, c.depth = nil, 0
	defer func() {
		c.current, c.depth = saved, depth
	}()
	fn()
}

func (c *Context) consumedInActiveFrame(t *Tag) bool {
	for f := c.current; f != nil; f = f.parent {
		if _, ok := f.seen[t]; ok {
			return true
		}
	}
	return false
}
