package table

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tvanderstad/parasol-db/internal/view"
)

func TestAppendAssignsSeqs(t *testing.T) {
	tbl := New[int]()
	require.Equal(t, view.Seq(0), tbl.CurrentSeq())

	seqs := tbl.Append(12, 34, 56, 78)
	require.Equal(t, []view.Seq{1, 2, 3, 4}, seqs)
	require.Equal(t, view.Seq(4), tbl.CurrentSeq())
	require.Equal(t, 4, tbl.Len())

	assert.Nil(t, tbl.Append())
	assert.Equal(t, view.Seq(4), tbl.CurrentSeq())
}

func TestScanWorkedExample(t *testing.T) {
	tbl := New[int]()
	tbl.Append(12, 34, 56, 78)

	fwd := view.Collect(tbl.Scan(1, 3, view.Forward))
	assert.Equal(t, []view.Record[int]{{Seq: 2, Event: 34}, {Seq: 3, Event: 56}}, fwd)

	back := view.Collect(view.Between[int](tbl, 3, 1))
	assert.Equal(t, []view.Record[int]{{Seq: 3, Event: 56}, {Seq: 2, Event: 34}}, back)
}

func TestScanBounds(t *testing.T) {
	tbl := New[string]()
	tbl.Append("a", "b", "c")

	tests := []struct {
		name   string
		lo, hi view.Seq
		want   []view.Seq
	}{
		{"full", 0, 3, []view.Seq{1, 2, 3}},
		{"empty range", 2, 2, nil},
		{"inverted", 3, 1, nil},
		{"past end", 1, 100, []view.Seq{2, 3}},
		{"beyond", 3, 10, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got []view.Seq
			for seq := range tbl.Scan(tc.lo, tc.hi, view.Forward) {
				got = append(got, seq)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAppendAtSparse(t *testing.T) {
	tbl := New[string]()
	tbl.AppendAt(3, "x")
	tbl.AppendAt(10, "y")
	tbl.AdvanceTo(12)
	tbl.AdvanceTo(5)

	assert.Equal(t, view.Seq(12), tbl.CurrentSeq())
	assert.Equal(t, 2, tbl.Len())

	got := view.Collect(tbl.Scan(3, 10, view.Forward))
	assert.Equal(t, []view.Record[string]{{Seq: 10, Event: "y"}}, got)
	got = view.Collect(tbl.Scan(2, 9, view.Forward))
	assert.Equal(t, []view.Record[string]{{Seq: 3, Event: "x"}}, got)

	assert.Panics(t, func() { tbl.AppendAt(12, "z") })
	assert.Panics(t, func() { tbl.AppendAt(4, "z") })

	assert.Equal(t, []view.Seq{13}, tbl.Append("z"))
}

func TestScanIgnoresLaterAppends(t *testing.T) {
	tbl := New[int]()
	tbl.Append(1, 2)

	var got []int
	for _, ev := range tbl.Scan(0, 10, view.Forward) {
		got = append(got, ev)
		if len(got) == 1 {
			tbl.Append(3)
		}
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestCursorMeetsInMiddle(t *testing.T) {
	tbl := New[int]()
	tbl.Append(1, 2, 3, 4)

	c := tbl.Cursor(0, 4)
	assert.Equal(t, 4, c.Remaining())
	s, _, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, view.Seq(1), s)
	s, _, ok = c.NextBack()
	require.True(t, ok)
	assert.Equal(t, view.Seq(4), s)
	s, _, _ = c.Next()
	assert.Equal(t, view.Seq(2), s)
	s, _, _ = c.NextBack()
	assert.Equal(t, view.Seq(3), s)
	_, _, ok = c.Next()
	assert.False(t, ok)
	_, _, ok = c.NextBack()
	assert.False(t, ok)
	assert.Equal(t, 0, c.Remaining())
}

func TestWaitForAppend(t *testing.T) {
	tbl := New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, tbl.WaitForAppend(ctx))

	done := make(chan bool, 1)
	go func() {
		done <- tbl.WaitForAppend(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	tbl.Append(1)

	select {
	case woke := <-done:
		assert.True(t, woke)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by append")
	}
}

func TestScanProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tbl := New[int]()
		gaps := rapid.SliceOfN(rapid.Uint64Range(1, 4), 0, 40).Draw(t, "gaps")
		var seq view.Seq
		var all []view.Seq
		for i, g := range gaps {
			seq += g
			tbl.AppendAt(seq, i)
			all = append(all, seq)
		}
		lo := rapid.Uint64Range(0, seq+2).Draw(t, "lo")
		hi := rapid.Uint64Range(0, seq+2).Draw(t, "hi")

		var want []view.Seq
		for _, s := range all {
			if lo < s && s <= hi {
				want = append(want, s)
			}
		}
		fwd := view.Collect(tbl.Scan(lo, hi, view.Forward))
		back := view.Collect(tbl.Scan(lo, hi, view.Backward))

		var got []view.Seq
		for _, r := range fwd {
			got = append(got, r.Seq)
		}
		if len(got) != len(want) {
			t.Fatalf("scan(%d,%d) = %v, want %v", lo, hi, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("scan(%d,%d) = %v, want %v", lo, hi, got, want)
			}
		}
		rev := view.Reversed(back)
		if len(rev) != len(fwd) {
			t.Fatalf("backward scan has %d records, forward has %d", len(rev), len(fwd))
		}
		for i := range fwd {
			if fwd[i] != rev[i] {
				t.Fatalf("backward scan is not the reverse of forward at %d", i)
			}
		}
	})
}
