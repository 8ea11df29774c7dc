package view

import "iter"

// Predicate decides whether a record is visible through a Filtered view.
type Predicate[E any] func(seq Seq, event E) bool

type filtered[E any] struct {
	inner View[E]
	pred  Predicate[E]
}

// Filtered wraps v so scans only yield records matching pred. CurrentSeq is
// unchanged: hiding records does not move the watermark.
func Filtered[E any](v View[E], pred Predicate[E]) View[E] {
	if pred == nil {
		return v
	}
	return filtered[E]{inner: v, pred: pred}
}

func (f filtered[E]) Scan(lo, hi Seq, dir Direction) iter.Seq2[Seq, E] {
	return func(yield func(Seq, E) bool) {
		for seq, ev := range f.inner.Scan(lo, hi, dir) {
			if !f.pred(seq, ev) {
				continue
			}
			if !yield(seq, ev) {
				return
			}
		}
	}
}

func (f filtered[E]) CurrentSeq() Seq { return f.inner.CurrentSeq() }
