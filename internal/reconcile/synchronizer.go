package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/roach88/revtrack/internal/iterable"
)

// Observer is notified of every delegate callback and every finished pass.
type Observer interface {
	ObserveOp(op Op)
	ObservePass(ops int)
}

// Option configures a Synchronizer.
type Option func(*settings)

type settings struct {
	observer Observer
	logger   *slog.Logger
}

// WithObserver reports ops and passes to o.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		s.observer = o
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// Config is what a Synchronizer is built from.
type Config[E any] struct {
	Delegate  Delegate[E]
	Artifacts *Artifacts
	Env       E
}

type phase int

const (
	phaseAppend phase = iota
	phasePrune
	phaseDone
)

// Synchronizer drives passes of a keyed list against its Artifacts.
type Synchronizer[E any] struct {
	guard     *Guard[E]
	artifacts *Artifacts
	env       E
	observer  Observer
	logger    *slog.Logger

	iterator iterable.Iterator
	current  *Item
	ops      int
	pass     int
}

// New creates a synchronizer. The delegate is wrapped in a Guard.
func New[E any](cfg Config[E], opts ...Option) *Synchronizer[E] {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return &Synchronizer[E]{
		guard:     NewGuard(cfg.Delegate),
		artifacts: cfg.Artifacts,
		env:       cfg.Env,
		observer:  s.observer,
		logger:    s.logger,
	}
}

// Artifacts returns the synchronizer's artifacts.
func (s *Synchronizer[E]) Artifacts() *Artifacts {
	return s.artifacts
}

// Pass returns the number of completed passes.
func (s *Synchronizer[E]) Pass() int {
	return s.pass
}

// Sync runs one pass: it iterates the collection's current value, reports
// the mutations that turn the rendered list into it, and calls Done. The
// first error from the delegate or from updating an item's references
// aborts the pass and is returned. A refused insert, append, move or
// delete is not applied to the artifacts, so the rendered order stays the
// one the delegate last accepted.
func (s *Synchronizer[E]) Sync() error {
	s.iterator = s.artifacts.Iterate()
	s.current = s.artifacts.Head()
	s.ops = 0
	s.guard.Reset()

	s.logger.Debug("sync pass starting",
		"pass", s.pass+1,
		"rendered", s.artifacts.Len())

	p := phaseAppend
	for {
		var err error
		switch p {
		case phaseAppend:
			p, err = s.nextAppend()
		case phasePrune:
			p, err = s.nextPrune()
		case phaseDone:
			return s.nextDone()
		}
		if err != nil {
			s.guard.Reset()
			s.artifacts.clearMarks()
			return fmt.Errorf("sync pass %d: %w", s.pass+1, err)
		}
	}
}

func (s *Synchronizer[E]) nextAppend() (phase, error) {
	entry, ok := s.iterator.Next()
	if !ok {
		return s.startPrune(), nil
	}

	var err error
	switch {
	case s.current != nil && s.current.Key == entry.Key:
		err = s.nextRetain(entry)
	case s.artifacts.Has(entry.Key):
		err = s.nextMove(entry)
	default:
		err = s.nextInsert(entry)
	}
	return phaseAppend, err
}

func (s *Synchronizer[E]) nextRetain(entry iterable.Item) error {
	item := s.current
	if err := s.artifacts.update(item, entry); err != nil {
		return err
	}
	s.current = s.artifacts.Next(item)
	return s.emit(OpRetain, item.Key, func() error {
		return s.guard.Retain(s.env, item.Key, item)
	})
}

// nextMove handles a known key that is not under the cursor. If the
// cursor already skipped over it, it moves before the cursor. Otherwise
// it lies ahead: the cursor advances past it, marking the skipped items,
// and it is retained in place.
func (s *Synchronizer[E]) nextMove(entry iterable.Item) error {
	found := s.artifacts.Get(entry.Key)
	if err := s.artifacts.update(found, entry); err != nil {
		return err
	}

	if !found.seen {
		s.advanceTo(found)
		return s.emit(OpRetain, found.Key, func() error {
			return s.guard.Retain(s.env, found.Key, found)
		})
	}

	from := s.artifacts.Next(found)
	s.artifacts.move(found, s.current)
	before := End
	if s.current != nil {
		before = s.current.Key
	}
	err := s.emit(OpMove, found.Key, func() error {
		return s.guard.Move(s.env, found.Key, found, before)
	})
	if err != nil {
		s.artifacts.move(found, from)
	}
	return err
}

func (s *Synchronizer[E]) nextInsert(entry iterable.Item) error {
	cur := s.current
	item := s.artifacts.insertBefore(entry, cur)

	var err error
	if cur == nil {
		err = s.emit(OpAppend, item.Key, func() error {
			return s.guard.Append(s.env, item.Key, item)
		})
	} else {
		err = s.emit(OpInsert, item.Key, func() error {
			return s.guard.Insert(s.env, item.Key, item, cur.Key)
		})
	}
	if err != nil {
		s.artifacts.remove(item)
	}
	return err
}

func (s *Synchronizer[E]) advanceTo(target *Item) {
	seek := s.current
	for seek != nil && seek != target {
		seek.seen = true
		seek = s.artifacts.Next(seek)
	}
	if seek != nil {
		s.current = s.artifacts.Next(seek)
	}
}

func (s *Synchronizer[E]) startPrune() phase {
	s.current = s.artifacts.Head()
	return phasePrune
}

func (s *Synchronizer[E]) nextPrune() (phase, error) {
	item := s.current
	if item == nil {
		return phaseDone, nil
	}
	s.current = s.artifacts.Next(item)

	if item.retained {
		item.retained = false
		item.seen = false
		return phasePrune, nil
	}

	if err := s.emit(OpDelete, item.Key, func() error {
		return s.guard.Delete(s.env, item.Key)
	}); err != nil {
		return phasePrune, err
	}
	s.artifacts.remove(item)
	return phasePrune, nil
}

func (s *Synchronizer[E]) nextDone() error {
	if err := s.emit(OpDone, nil, func() error {
		return s.guard.Done(s.env)
	}); err != nil {
		return fmt.Errorf("sync pass %d: %w", s.pass+1, err)
	}

	s.pass++
	if s.observer != nil {
		s.observer.ObservePass(s.ops)
	}
	s.logger.Info("sync pass complete",
		"pass", s.pass,
		"ops", s.ops,
		"rendered", s.artifacts.Len())
	return nil
}

func (s *Synchronizer[E]) emit(op Op, key any, call func() error) error {
	s.logger.Debug("sync op", "op", op, "key", key)
	if err := call(); err != nil {
		return err
	}
	if op != OpDone {
		s.ops++
	}
	if s.observer != nil {
		s.observer.ObserveOp(op)
	}
	return nil
}
