// Package index implements temporal key/value indexes over a view.
//
// An index folds the ops a Projector derives from each event (Insert, Remove,
// Clear) into a map, and remembers the seq it has folded up to. Queries may
// name any seq:
//
//   - at or ahead of the watermark, the map is cloned and the missing ops are
//     replayed forward;
//   - behind the watermark, the index rewinds. Keys touched since the query
//     seq are re-resolved by scanning history newest first. If a Clear lies
//     in the rewound window the state is rebuilt from the newest Clear at or
//     before the query seq instead.
//
// Every branch returns exactly what Fold (replay from zero) would return.
//
//	idx := index.New[Event, string, string](tbl, proj)
//	idx.Update(tbl.CurrentSeq())
//	state := idx.GetAll(42)
//	v, ok := idx.Get(42, "k1")
//
// Update takes the index write lock; queries share the read lock and scan the
// source while holding it.
package index
