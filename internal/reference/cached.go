package reference

import "github.com/roach88/revtrack/internal/tag"

// Observer is notified when a cached computation reruns.
type Observer interface {
	ObserveRecompute()
}

// CachedOption configures a Cached reference.
type CachedOption func(*cachedSettings)

type cachedSettings struct {
	observer Observer
}

// WithObserver reports every recomputation to o.
func WithObserver(o Observer) CachedOption {
	return func(s *cachedSettings) {
		s.observer = o
	}
}

// Cached memoizes a computation and autotracks its dependencies.
//
// Value runs the computation inside a tracking frame the first time and
// whenever the combined tag of what it last read fails to validate against
// the snapshot taken after that run. Otherwise it returns the cached value
// unchanged and consumes the cached tag, so an enclosing tracked
// computation still depends on everything this one read.
type Cached[T any] struct {
	ctx     *tag.Context
	compute func() T
	obs     Observer

	tag          *tag.Tag
	lastRevision tag.Revision
	lastValue    T
	computed     bool
}

// NewCached returns a cached reference over compute.
func NewCached[T any](ctx *tag.Context, compute func() T, opts ...CachedOption) *Cached[T] {
	var s cachedSettings
	for _, opt := range opts {
		opt(&s)
	}
	return &Cached[T]{ctx: ctx, compute: compute, obs: s.observer}
}

func (c *Cached[T]) Value() T {
	if c.computed && tag.Validate(c.tag, c.lastRevision) {
		c.ctx.Consume(c.tag)
		return c.lastValue
	}

	var v T
	t := c.ctx.Track(func() {
		v = c.compute()
	})
	c.tag = t
	c.lastRevision = tag.Value(t)
	c.lastValue = v
	c.computed = true

	if c.obs != nil {
		c.obs.ObserveRecompute()
	}
	return v
}

// IsConst reports whether the last computation read no tracked state.
//
// Calling it before the first Value panics with a PREMATURE_QUERY *Error in
// debug contexts and reports false otherwise.
func (c *Cached[T]) IsConst() bool {
	if !c.computed {
		if c.ctx.Debug() {
			panic(&Error{Code: ErrCodePrematureQuery, Message: "IsConst called before Value"})
		}
		return false
	}
	return c.tag == tag.Constant
}

// Tag returns the dependency tag of the last computation, or tag.Volatile
// if the computation has never run.
func (c *Cached[T]) Tag() *tag.Tag {
	if !c.computed {
		return tag.Volatile
	}
	return c.tag
}
