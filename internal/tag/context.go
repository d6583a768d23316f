package tag

// Context owns a revision clock and an autotracking frame stack.
//
// Every non-sentinel tag belongs to the Context that created it. Mixing
// tags from two contexts in one Combine is not supported.
type Context struct {
	clock   *Clock
	debug   bool
	current *Frame
	depth   int
	nextID  uint64
	now     *Tag
}

// Option configures a Context.
type Option func(*Context)

// WithDebug toggles debug checks (default: on).
//
// Debug contexts panic on tag cycles and premature reference queries, and
// reject dirtying tags that an active frame already consumed. Release
// contexts break cycles by forcing revalidation instead.
func WithDebug(debug bool) Option {
	return func(c *Context) {
		c.debug = debug
	}
}

// WithClock makes the context use an existing clock.
func WithClock(clock *Clock) Option {
	return func(c *Context) {
		c.clock = clock
	}
}

// NewContext creates a tracking context with a fresh clock.
func NewContext(opts ...Option) *Context {
	c := &Context{
		clock: NewClock(),
		debug: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.now = &Tag{kind: KindCurrent, ctx: c}
	return c
}

// Debug reports whether debug checks are enabled.
func (c *Context) Debug() bool {
	return c.debug
}

// Clock returns the context's revision clock.
func (c *Context) Clock() *Clock {
	return c.clock
}

// Current returns the current revision.
func (c *Context) Current() Revision {
	return c.clock.Current()
}

// Reset discards the frame stack and restarts the clock at InitialRevision.
//
// Only for isolating test runs: tags created before Reset must not be used
// afterwards, since their revisions may be ahead of the new clock.
func (c *Context) Reset() {
	c.clock = NewClock()
	c.current = nil
	c.depth = 0
	c.now = &Tag{kind: KindCurrent, ctx: c}
}

// NewTag creates a dirtyable tag at InitialRevision.
func (c *Context) NewTag() *Tag {
	return c.newTag(KindDirtyable)
}

// NewUpdatableTag creates an updatable tag at InitialRevision with no subtag.
func (c *Context) NewUpdatableTag() *Tag {
	return c.newTag(KindUpdatable)
}

// CurrentTag returns the tag whose value is always the current revision.
// It validates only against snapshots taken at or after the latest Dirty.
func (c *Context) CurrentTag() *Tag {
	return c.now
}

// Combine returns a tag that changes whenever any of tags changes.
//
// Constant tags are dropped. No remaining tags yields Constant, exactly one
// yields that tag itself, and more yield a new combinator.
func (c *Context) Combine(tags ...*Tag) *Tag {
	var kept []*Tag
	for _, t := range tags {
		if t == nil || t == Constant {
			continue
		}
		kept = append(kept, t)
	}

	switch len(kept) {
	case 0:
		return Constant
	case 1:
		return kept[0]
	}

	t := c.newTag(KindCombinator)
	t.subtags = kept
	return t
}

func (c *Context) newTag(kind Kind) *Tag {
	c.nextID++
	return &Tag{
		kind:      kind,
		id:        c.nextID,
		ctx:       c,
		revision:  InitialRevision,
		lastValue: InitialRevision,
		// lastChecked starts below every clock value so the first read folds.
		lastChecked: ConstantRevision,
	}
}
