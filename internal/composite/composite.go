package composite

import (
	"container/heap"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/tvanderstad/parasol-db/internal/view"
)

// View merges several member views into one stream ordered by
// (seq, member index). Its CurrentSeq is the minimum of a vector clock whose
// entries are advanced only by VectorClockUpdate.
type View[E any] struct {
	members []view.View[E]
	clock   []atomic.Uint64
}

var _ view.View[int] = (*View[int])(nil)

// New returns a composite over members with every clock entry at 0.
func New[E any](members ...view.View[E]) *View[E] {
	return &View[E]{
		members: members,
		clock:   make([]atomic.Uint64, len(members)),
	}
}

// Members returns the number of member views.
func (c *View[E]) Members() int { return len(c.members) }

// Member returns the i'th member view.
func (c *View[E]) Member(i int) view.View[E] {
	c.checkMember(i)
	return c.members[i]
}

// VectorClockUpdate records that member will never again insert a record at
// or below seq. Entries only move forward: a lower seq or an unknown member
// is a caller bug and panics.
func (c *View[E]) VectorClockUpdate(member int, seq view.Seq) {
	c.checkMember(member)
	entry := &c.clock[member]
	for {
		old := entry.Load()
		if seq < old {
			panic(fmt.Sprintf("composite: vector clock for member %d moved backward from %d to %d", member, old, seq))
		}
		if seq == old || entry.CompareAndSwap(old, seq) {
			return
		}
	}
}

// VectorClock returns a snapshot of every entry. Entries are read one at a
// time, so concurrent updates may be partially reflected.
func (c *View[E]) VectorClock() []view.Seq {
	out := make([]view.Seq, len(c.clock))
	for i := range c.clock {
		out[i] = c.clock[i].Load()
	}
	return out
}

// CurrentSeq returns the minimum vector clock entry, or 0 with no members.
func (c *View[E]) CurrentSeq() view.Seq {
	if len(c.clock) == 0 {
		return 0
	}
	lowest := c.clock[0].Load()
	for i := 1; i < len(c.clock); i++ {
		if s := c.clock[i].Load(); s < lowest {
			lowest = s
		}
	}
	return lowest
}

func (c *View[E]) checkMember(i int) {
	if i < 0 || i >= len(c.members) {
		panic(fmt.Sprintf("composite: member %d out of range [0, %d)", i, len(c.members)))
	}
}

// Scan merges the members' scans of (lo, hi]. Forward order is
// (seq asc, member asc); Backward is its exact reverse, so ties go to the
// highest member first.
func (c *View[E]) Scan(lo, hi view.Seq, dir view.Direction) iter.Seq2[view.Seq, E] {
	return func(yield func(view.Seq, E) bool) {
		if lo >= hi || len(c.members) == 0 {
			return
		}
		h := &mergeHeap[E]{backward: dir == view.Backward}
		for i, m := range c.members {
			next, stop := iter.Pull2(m.Scan(lo, hi, dir))
			defer stop()
			if seq, ev, ok := next(); ok {
				h.items = append(h.items, head[E]{seq: seq, member: i, event: ev, next: next})
			}
		}
		heap.Init(h)
		for h.Len() > 0 {
			top := &h.items[0]
			if !yield(top.seq, top.event) {
				return
			}
			if seq, ev, ok := top.next(); ok {
				top.seq, top.event = seq, ev
				heap.Fix(h, 0)
			} else {
				heap.Pop(h)
			}
		}
	}
}

type head[E any] struct {
	seq    view.Seq
	member int
	event  E
	next   func() (view.Seq, E, bool)
}

type mergeHeap[E any] struct {
	items    []head[E]
	backward bool
}

func (h *mergeHeap[E]) Len() int { return len(h.items) }

func (h *mergeHeap[E]) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.seq != b.seq {
		return (a.seq < b.seq) != h.backward
	}
	return (a.member < b.member) != h.backward
}

func (h *mergeHeap[E]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *mergeHeap[E]) Push(x any) { h.items = append(h.items, x.(head[E])) }

func (h *mergeHeap[E]) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items = h.items[:n-1]
	return it
}
