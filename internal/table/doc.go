// Package table implements parasol's in-memory sequenced table.
//
// # Overview
//
// A Table owns an ordered, seq-unique list of records and assigns seqs on
// append. Records are stored as two parallel slices (seqs, events) so both
// scan bounds are located by binary search over the seq slice: O(log n) to
// position, O(k) to stream k records.
//
//	t := table.New[string]()
//	seqs := t.Append("a", "b", "c") // [1 2 3]
//	for seq, ev := range t.Scan(1, 3, view.Forward) { ... } // (2,b) (3,c)
//	for seq, ev := range t.Scan(1, 3, view.Backward) { ... } // (3,c) (2,b)
//
// Append is exclusive; scans capture the slices under a read lock and then
// run without holding it, so scans never block appends and never observe
// records appended after they started.
//
// Composite members whose seqs come from an external clock use AppendAt and
// AdvanceTo instead of Append. Seqs must never decrease; AppendAt panics when
// asked to.
package table
