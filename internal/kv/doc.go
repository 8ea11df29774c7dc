// Package kv is parasol's key/value table: put, del and clear commands
// stored in a durable log and folded into a temporal index, so the state can
// be read as of any seq.
//
//	s, _ := kv.Open(db, "settings", eventlog.JSONCodec[kv.Command]{}, kv.Options{})
//	seq, _ := s.Put(ctx, "theme", "dark")
//	_, _ = s.Clear(ctx)
//	v, ok := s.Get(seq, "theme") // "dark", true
package kv
