// Package composite merges independently appended logs into one ordered view.
//
// Each member is any view.View. Members may share seqs, and seqs may be
// sparse or interleaved across members. A scan is a k-way heap merge of the
// members' own scans:
//
//	c := composite.New[Event](a, b)
//	c.VectorClockUpdate(0, 10)
//	c.VectorClockUpdate(1, 8)
//	c.CurrentSeq() // 8
//
// The vector clock is the only shared mutable state. Each entry is an atomic
// and is monotonic; entries for different members may be updated
// concurrently and in any order.
package composite
