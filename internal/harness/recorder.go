package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/revtrack/internal/iterable"
	"github.com/roach88/revtrack/internal/reconcile"
)

// recorder is the harness delegate. It appends every callback to the
// result's trace and can fail one callback per pass on request.
type recorder struct {
	labels *keyLabeler
	pass   int
	seq    int64
	failOn string
	failed bool
}

func newRecorder() *recorder {
	return &recorder{labels: newKeyLabeler()}
}

// start resets the per-pass state.
func (r *recorder) start(pass int, failOn string) {
	r.pass = pass
	r.failOn = failOn
	r.failed = false
}

func (r *recorder) record(res *Result, op reconcile.Op, key, before any) error {
	e := TraceEvent{Pass: r.pass, Op: string(op)}
	if op != reconcile.OpDone {
		e.Key = r.labels.label(key)
	}
	if before != nil {
		e.Before = r.labels.label(before)
	}

	if r.failOn != "" && !r.failed && strings.HasPrefix(e.String(), r.failOn) {
		r.failed = true
		return fmt.Errorf("delegate refused %q", e.String())
	}

	r.seq++
	e.Seq = r.seq
	res.Trace = append(res.Trace, e)
	return nil
}

func (r *recorder) Retain(res *Result, key any, _ *reconcile.Item) error {
	return r.record(res, reconcile.OpRetain, key, nil)
}

func (r *recorder) Append(res *Result, key any, _ *reconcile.Item) error {
	return r.record(res, reconcile.OpAppend, key, nil)
}

func (r *recorder) Insert(res *Result, key any, _ *reconcile.Item, before any) error {
	return r.record(res, reconcile.OpInsert, key, before)
}

func (r *recorder) Move(res *Result, key any, _ *reconcile.Item, before any) error {
	return r.record(res, reconcile.OpMove, key, before)
}

func (r *recorder) Delete(res *Result, key any) error {
	return r.record(res, reconcile.OpDelete, key, nil)
}

func (r *recorder) Done(res *Result) error {
	return r.record(res, reconcile.OpDone, nil, nil)
}

// keyLabeler prints keys. Scalars print as themselves, UniqueKeys as
// "label#n" and sentinels by name. Any other key (an identity key of a map
// item, say) gets "$n" in order of first appearance, so traces stay
// reproducible across runs.
type keyLabeler struct {
	labels map[any]string
	next   int
}

func newKeyLabeler() *keyLabeler {
	return &keyLabeler{labels: make(map[any]string)}
}

func (l *keyLabeler) label(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(v)
	case *iterable.UniqueKey:
		return fmt.Sprintf("%s#%d", l.label(v.Value), v.Count)
	case fmt.Stringer:
		return v.String()
	}

	if s, ok := l.labels[k]; ok {
		return s
	}
	l.next++
	s := fmt.Sprintf("$%d", l.next)
	l.labels[k] = s
	return s
}
