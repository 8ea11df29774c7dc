// Package eventlog implements parasol's durable, Pebble-backed tables.
//
// # Overview
//
// A Log[E] is the on-disk counterpart of table.Table: an append-only,
// seq-ordered list of events that satisfies view.View, so indexes and
// composites run over it unchanged. Keys are lexicographically ordered for
// efficient range scans in both directions:
//   - tbl/{table}/m           (table metadata: last seq, 8B BE)
//   - tbl/{table}/e/{seq_be8} (entries)
//   - tbl/{table}/wm/{name}   (durable consumer watermarks)
//
// Entries are stored as: varint payloadLen | payload | crc32c(payload). The
// payload is the event encoded by the log's Codec (JSON, MessagePack,
// protobuf or raw bytes).
//
// API surface (internal)
//
//	l, _ := OpenLog(db, "orders", JSONCodec[Order]{}, logger)
//	// Append a batch atomically; returns assigned seqs
//	seqs, _ := l.Append(ctx, o1, o2)
//
//	// Scan (lo, hi] forward or backward
//	for seq, o := range l.Scan(0, l.CurrentSeq(), view.Backward) { ... }
//
//	// Blocking wait/notify
//	woke := l.WaitForAppend(200 * time.Millisecond)
//
//	// Durable watermark commits (idempotent, no regression)
//	_ = l.CommitWatermark("kv-index", seqs[len(seqs)-1])
package eventlog
