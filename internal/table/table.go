package table

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/tvanderstad/parasol-db/internal/view"
)

// Table is an in-memory, append-only log. Seqs are assigned on append and
// strictly increase in storage order; they need not be contiguous.
type Table[E any] struct {
	mu       sync.RWMutex
	seqs     []view.Seq
	events   []E
	current  view.Seq
	notifyCh chan struct{}
}

// New returns an empty table.
func New[E any]() *Table[E] {
	return &Table[E]{notifyCh: make(chan struct{})}
}

var _ view.View[int] = (*Table[int])(nil)

// Append assigns each event the next seq, in submission order, and returns
// the assigned seqs.
func (t *Table[E]) Append(events ...E) []view.Seq {
	if len(events) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	seqs := make([]view.Seq, len(events))
	for i, ev := range events {
		t.current++
		t.seqs = append(t.seqs, t.current)
		t.events = append(t.events, ev)
		seqs[i] = t.current
	}
	t.wakeLocked()
	return seqs
}

// AppendAt stores event at a seq chosen by an external sequencer, as done for
// composite members whose seqs come from a shared clock. seq must be greater
// than CurrentSeq; anything else would reorder history, so it panics.
func (t *Table[E]) AppendAt(seq view.Seq, event E) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq <= t.current {
		panic(fmt.Sprintf("table: AppendAt seq %d is not after current seq %d", seq, t.current))
	}
	t.current = seq
	t.seqs = append(t.seqs, seq)
	t.events = append(t.events, event)
	t.wakeLocked()
}

// AdvanceTo raises CurrentSeq to seq without adding a record. Lower values
// are ignored.
func (t *Table[E]) AdvanceTo(seq view.Seq) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq > t.current {
		t.current = seq
		t.wakeLocked()
	}
}

func (t *Table[E]) wakeLocked() {
	close(t.notifyCh)
	t.notifyCh = make(chan struct{})
}

// CurrentSeq returns the greatest seq assigned so far (0 if empty).
func (t *Table[E]) CurrentSeq() view.Seq {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Len returns the number of stored records.
func (t *Table[E]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.seqs)
}

// snapshot captures the slice headers. Stored elements are never rewritten,
// so the returned slices stay valid while later appends grow the table.
func (t *Table[E]) snapshot() ([]view.Seq, []E) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seqs, t.events
}

// bounds returns the index range [from, to) holding seqs in (lo, hi].
func bounds(seqs []view.Seq, lo, hi view.Seq) (int, int) {
	if lo >= hi {
		return 0, 0
	}
	from := sort.Search(len(seqs), func(i int) bool { return seqs[i] > lo })
	to := sort.Search(len(seqs), func(i int) bool { return seqs[i] > hi })
	return from, to
}

// Scan yields records with lo < seq <= hi in the requested direction.
func (t *Table[E]) Scan(lo, hi view.Seq, dir view.Direction) iter.Seq2[view.Seq, E] {
	return func(yield func(view.Seq, E) bool) {
		c := t.Cursor(lo, hi)
		next := c.Next
		if dir == view.Backward {
			next = c.NextBack
		}
		for {
			seq, ev, ok := next()
			if !ok || !yield(seq, ev) {
				return
			}
		}
	}
}

// Cursor returns a double-ended cursor over (lo, hi]. The range is fixed
// when the cursor is created.
func (t *Table[E]) Cursor(lo, hi view.Seq) *Cursor[E] {
	seqs, events := t.snapshot()
	from, to := bounds(seqs, lo, hi)
	return &Cursor[E]{seqs: seqs, events: events, front: from, back: to}
}

// WaitForAppend blocks until the table changes or ctx is done. It returns
// true if woken by an append.
func (t *Table[E]) WaitForAppend(ctx context.Context) bool {
	t.mu.RLock()
	ch := t.notifyCh
	t.mu.RUnlock()
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}
