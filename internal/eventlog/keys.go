package eventlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - tbl/{table}/m
// - tbl/{table}/e/{seq_be8}
// - tbl/{table}/wm/{name}

var (
	tblPrefix  = []byte("tbl/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
	wmSeg      = []byte("/wm/")
)

// ErrInvalidName is returned for table and watermark names that cannot be
// stored.
var ErrInvalidName = errors.New("invalid name")

// ValidateName rejects table and watermark names that would break the key
// layout.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: %q contains '/' or NUL", ErrInvalidName, name)
	}
	return nil
}

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func tableKey(table string, extra int) []byte {
	k := make([]byte, 0, len(tblPrefix)+len(table)+extra)
	k = append(k, tblPrefix...)
	return append(k, table...)
}

// KeyTableMeta builds the table metadata key holding the last seq.
func KeyTableMeta(table string) []byte {
	k := tableKey(table, len(metaSuffix))
	return append(k, metaSuffix...)
}

// KeyTableEntry builds the entry key with a big-endian seq for proper ordering.
func KeyTableEntry(table string, seq uint64) []byte {
	k := tableKey(table, len(entrySeg)+8)
	k = append(k, entrySeg...)
	return appendBE8(k, seq)
}

// KeyWatermark builds the durable watermark key for a named consumer.
func KeyWatermark(table, name string) []byte {
	k := tableKey(table, len(wmSeg)+len(name))
	k = append(k, wmSeg...)
	return append(k, name...)
}

// entryBounds returns iterator bounds covering entries with lo < seq <= hi.
// The caller guarantees lo < hi.
func entryBounds(table string, lo, hi uint64) (lower, upper []byte) {
	lower = KeyTableEntry(table, lo+1)
	upper = append(KeyTableEntry(table, hi), 0x00)
	return lower, upper
}

// seqFromEntryKey extracts the seq suffix of an entry key.
func seqFromEntryKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(k)-8:])
}
