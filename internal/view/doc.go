// Package view defines the read contract shared by every log in parasol.
//
// A View is a seq-ordered, read-only sequence of records. The in-memory
// table, the pebble-backed event log and the composite merge all implement
// it, and indexes are built against it, so any of them can drive an index.
//
//	for seq, ev := range v.Scan(0, v.CurrentSeq(), view.Forward) {
//	    _ = seq
//	    _ = ev
//	}
//
//	// Bound-order encoding: (3, 1) scans (1, 3] descending.
//	for seq, ev := range view.Between(v, 3, 1) { ... }
package view
