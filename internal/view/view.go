package view

import (
	"fmt"
	"iter"
)

// Seq is a record's position in a log. Seq 0 means "before any record"; a
// log's CurrentSeq is the last seq it has assigned (0 when empty).
type Seq = uint64

// Direction selects the order in which Scan yields records.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Forward {
		return Backward
	}
	return Forward
}

// Record is an immutable (seq, event) pair.
type Record[E any] struct {
	Seq   Seq
	Event E
}

// View is a read-only, seq-ordered log.
type View[E any] interface {
	// Scan yields every record with lo < seq <= hi, ascending when dir is
	// Forward and descending when Backward. The returned sequence is lazy and
	// may be ranged over more than once. Bounds outside the available range
	// simply yield fewer records.
	Scan(lo, hi Seq, dir Direction) iter.Seq2[Seq, E]
	// CurrentSeq is the seq up to and including which the view is complete.
	CurrentSeq() Seq
}

// Between scans v using the bound order to pick the direction: a <= b yields
// (a, b] ascending, a > b yields (b, a] descending.
func Between[E any](v View[E], a, b Seq) iter.Seq2[Seq, E] {
	if a <= b {
		return v.Scan(a, b, Forward)
	}
	return v.Scan(b, a, Backward)
}

// All scans every record of v up to its CurrentSeq.
func All[E any](v View[E], dir Direction) iter.Seq2[Seq, E] {
	return v.Scan(0, v.CurrentSeq(), dir)
}

// Collect drains a scan into a slice.
func Collect[E any](s iter.Seq2[Seq, E]) []Record[E] {
	var out []Record[E]
	for seq, ev := range s {
		out = append(out, Record[E]{Seq: seq, Event: ev})
	}
	return out
}

// Reversed returns a reversed copy of records.
func Reversed[E any](records []Record[E]) []Record[E] {
	out := make([]Record[E], len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}

// Empty yields nothing.
func Empty[E any]() iter.Seq2[Seq, E] {
	return func(func(Seq, E) bool) {}
}
