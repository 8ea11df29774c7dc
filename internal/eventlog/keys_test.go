package eventlog

import (
	"bytes"
	"errors"
	"testing"
)

func TestKeyOrderingEntries(t *testing.T) {
	a := KeyTableEntry("orders", 10)
	b := KeyTableEntry("orders", 11)
	c := KeyTableEntry("orders", 256)
	if !bytes.HasPrefix(a, []byte("tbl/orders/e/")) {
		t.Fatalf("unexpected entry layout: %q", a)
	}
	if bytes.Compare(a, b) >= 0 || bytes.Compare(b, c) >= 0 {
		t.Fatalf("expected entry keys ordered by seq")
	}
	if got := seqFromEntryKey(c); got != 256 {
		t.Fatalf("seq from key = %d, want 256", got)
	}
}

func TestEntryBoundsExcludeNeighbours(t *testing.T) {
	lower, upper := entryBounds("t", 3, 5)
	in := [][]byte{KeyTableEntry("t", 4), KeyTableEntry("t", 5)}
	out := [][]byte{KeyTableEntry("t", 3), KeyTableEntry("t", 6), KeyTableMeta("t"), KeyWatermark("t", "w"), KeyTableEntry("u", 4)}
	for _, k := range in {
		if bytes.Compare(k, lower) < 0 || bytes.Compare(k, upper) >= 0 {
			t.Fatalf("%q should be inside bounds", k)
		}
	}
	for _, k := range out {
		if bytes.Compare(k, lower) >= 0 && bytes.Compare(k, upper) < 0 {
			t.Fatalf("%q should be outside bounds", k)
		}
	}
}

func TestWatermarkKey(t *testing.T) {
	k := KeyWatermark("t", "idx")
	if string(k) != "tbl/t/wm/idx" {
		t.Fatalf("unexpected watermark layout: %q", string(k))
	}
	if string(KeyTableMeta("t")) != "tbl/t/m" {
		t.Fatalf("unexpected meta layout")
	}
}

func TestValidateName(t *testing.T) {
	for _, bad := range []string{"", "a/b", "nul\x00"} {
		if err := ValidateName(bad); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected %q to be rejected, got %v", bad, err)
		}
	}
	if err := ValidateName("orders-2024"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
}
