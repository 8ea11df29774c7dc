package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tvanderstad/parasol-db/internal/table"
	"github.com/tvanderstad/parasol-db/internal/view"
)

// event carries its ops directly so tests can script arbitrary histories.
type event []Op[string, string]

var passthrough = ProjectorFunc[event, string, string](func(e event) []Op[string, string] { return e })

func ins(k, v string) event { return event{Insert(k, v)} }
func rem(k string) event    { return event{Remove[string, string](k)} }
func clr() event            { return event{Clear[string, string]()} }

func newTestIndex(t *testing.T, events ...event) (*table.Table[event], *HashMap[event, string, string]) {
	t.Helper()
	tbl := table.New[event]()
	tbl.Append(events...)
	return tbl, New[event, string, string](tbl, passthrough)
}

// checkAll asserts GetAll and Get agree with Fold at every seq up to max.
func checkAll(t *testing.T, src view.View[event], idx *HashMap[event, string, string], max view.Seq) {
	t.Helper()
	for seq := view.Seq(0); seq <= max; seq++ {
		want := Fold[event, string, string](src, passthrough, seq)
		got := idx.GetAll(seq)
		require.Equal(t, want, got, "GetAll(%d) at watermark %d", seq, idx.CurrentSeq())
		for _, k := range []string{"k1", "k2", "k3", "key1"} {
			v, ok := idx.Get(seq, k)
			wv, wok := want[k]
			require.Equal(t, wok, ok, "Get(%d, %s) presence", seq, k)
			require.Equal(t, wv, v, "Get(%d, %s) value", seq, k)
		}
	}
}

func TestWorkedExample(t *testing.T) {
	tbl, idx := newTestIndex(t, ins("k1", "v1"), ins("k2", "v2"), clr(), ins("k3", "v3"))

	want := []map[string]string{
		{},
		{"k1": "v1"},
		{"k1": "v1", "k2": "v2"},
		{},
		{"k3": "v3"},
	}
	for watermark := view.Seq(0); watermark <= tbl.CurrentSeq(); watermark++ {
		idx.Update(watermark)
		for seq, w := range want {
			assert.Equal(t, w, idx.GetAll(view.Seq(seq)), "GetAll(%d) at watermark %d", seq, watermark)
		}
	}
}

func TestMultipleClearsWithReinserts(t *testing.T) {
	tbl, idx := newTestIndex(t,
		ins("key1", "value1"),
		clr(),
		ins("key1", "value1"),
		clr(),
		ins("key1", "VALUE1"),
	)
	want := []map[string]string{
		{},
		{"key1": "value1"},
		{},
		{"key1": "value1"},
		{},
		{"key1": "VALUE1"},
	}
	for watermark := view.Seq(0); watermark <= tbl.CurrentSeq(); watermark++ {
		idx.Update(watermark)
		for seq, w := range want {
			require.Equal(t, w, idx.GetAll(view.Seq(seq)), "GetAll(%d) at watermark %d", seq, watermark)
		}
		checkAll(t, tbl, idx, tbl.CurrentSeq())
	}
}

func TestRemoveAfterInsertIsAuthoritative(t *testing.T) {
	tbl, idx := newTestIndex(t,
		ins("k1", "a"),
		ins("k2", "b"),
		rem("k1"),
		clr(),
		ins("k3", "c"),
	)
	idx.Update(tbl.CurrentSeq())

	// Rewinding across the Clear rebuilds; the Remove at 3 must hide k1.
	assert.Equal(t, map[string]string{"k2": "b"}, idx.GetAll(3))
	assert.Equal(t, uint64(1), idx.Stats().Rebuilds)
	checkAll(t, tbl, idx, tbl.CurrentSeq())
}

func TestOpsWithinEventApplyInOrder(t *testing.T) {
	tbl, idx := newTestIndex(t,
		event{Insert("k1", "a"), Remove[string, string]("k1"), Insert("k1", "b")},
		event{Insert("k2", "x"), Clear[string, string](), Insert("k1", "c")},
		event{Remove[string, string]("k1")},
	)
	idx.Update(tbl.CurrentSeq())

	assert.Equal(t, map[string]string{"k1": "b"}, idx.GetAll(1))
	assert.Equal(t, map[string]string{"k1": "c"}, idx.GetAll(2))
	assert.Equal(t, map[string]string{}, idx.GetAll(3))
	checkAll(t, tbl, idx, tbl.CurrentSeq())
}

func TestUpdateSemantics(t *testing.T) {
	tbl, idx := newTestIndex(t, ins("k1", "v1"), ins("k2", "v2"))

	idx.Update(2)
	require.Equal(t, view.Seq(2), idx.CurrentSeq())

	// Going backward is a no-op.
	idx.Update(1)
	require.Equal(t, view.Seq(2), idx.CurrentSeq())
	assert.Equal(t, map[string]string{"k1": "v1", "k2": "v2"}, idx.GetAll(2))

	// Past the source watermark is clamped.
	idx.Update(10)
	require.Equal(t, view.Seq(2), idx.CurrentSeq())

	tbl.Append(rem("k1"))
	idx.Update(10)
	require.Equal(t, view.Seq(3), idx.CurrentSeq())
	assert.Equal(t, map[string]string{"k2": "v2"}, idx.GetAll(3))
	assert.Equal(t, uint64(2), idx.Stats().Updates)
}

func TestQueryAheadOfWatermark(t *testing.T) {
	tbl, idx := newTestIndex(t, ins("k1", "v1"), clr(), ins("k2", "v2"))
	require.Equal(t, view.Seq(0), idx.CurrentSeq())

	assert.Equal(t, map[string]string{"k2": "v2"}, idx.GetAll(tbl.CurrentSeq()))
	assert.Equal(t, map[string]string{"k2": "v2"}, idx.GetAll(100))
	v, ok := idx.Get(1, "k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
	_, ok = idx.Get(2, "k1")
	assert.False(t, ok)

	st := idx.Stats()
	assert.Equal(t, uint64(4), st.Ahead)
	assert.Zero(t, st.Behind)
}

func TestGetAllIsCallerOwned(t *testing.T) {
	tbl, idx := newTestIndex(t, ins("k1", "v1"))
	idx.Update(tbl.CurrentSeq())

	got := idx.GetAll(1)
	got["k1"] = "mutated"
	got["extra"] = "x"
	assert.Equal(t, map[string]string{"k1": "v1"}, idx.GetAll(1))
}

func TestSparseSource(t *testing.T) {
	tbl := table.New[event]()
	tbl.AppendAt(3, ins("k1", "a"))
	tbl.AppendAt(7, clr())
	tbl.AppendAt(8, ins("k2", "b"))
	tbl.AppendAt(20, ins("k1", "c"))
	idx := New[event, string, string](tbl, passthrough)

	idx.Update(8)
	checkAll(t, tbl, idx, 22)
	idx.Update(20)
	checkAll(t, tbl, idx, 22)
}

func TestOpKindString(t *testing.T) {
	assert.Equal(t, "insert", OpInsert.String())
	assert.Equal(t, "remove", OpRemove.String())
	assert.Equal(t, "clear", OpClear.String())
	assert.Equal(t, "insert(a=1)", Insert("a", 1).String())
	assert.Equal(t, "remove(a)", Remove[string, int]("a").String())
	assert.Equal(t, "clear", Clear[string, int]().String())
}

func genOp(t *rapid.T, label string) Op[string, string] {
	key := rapid.SampledFrom([]string{"k1", "k2", "k3"}).Draw(t, label+"-key")
	switch rapid.IntRange(0, 9).Draw(t, label+"-kind") {
	case 0:
		return Clear[string, string]()
	case 1, 2, 3:
		return Remove[string, string](key)
	default:
		return Insert(key, fmt.Sprintf("v%d", rapid.IntRange(0, 5).Draw(t, label+"-val")))
	}
}

func TestReplayEquivalence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tbl := table.New[event]()
		n := rapid.IntRange(0, 25).Draw(t, "events")
		for i := 0; i < n; i++ {
			nops := rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("ops%d", i))
			ev := make(event, 0, nops)
			for j := 0; j < nops; j++ {
				ev = append(ev, genOp(t, fmt.Sprintf("e%d-%d", i, j)))
			}
			tbl.Append(ev)
		}
		idx := New[event, string, string](tbl, passthrough)
		idx.Update(rapid.Uint64Range(0, uint64(n)).Draw(t, "watermark"))

		for seq := view.Seq(0); seq <= view.Seq(n)+1; seq++ {
			want := Fold[event, string, string](tbl, passthrough, seq)
			got := idx.GetAll(seq)
			if len(want) != len(got) {
				t.Fatalf("GetAll(%d) at %d = %v, want %v", seq, idx.CurrentSeq(), got, want)
			}
			for k, wv := range want {
				if gv, ok := got[k]; !ok || gv != wv {
					t.Fatalf("GetAll(%d) at %d = %v, want %v", seq, idx.CurrentSeq(), got, want)
				}
			}
			for _, k := range []string{"k1", "k2", "k3"} {
				gv, ok := idx.Get(seq, k)
				wv, wok := want[k]
				if ok != wok || gv != wv {
					t.Fatalf("Get(%d, %s) at %d = %q,%v want %q,%v", seq, k, idx.CurrentSeq(), gv, ok, wv, wok)
				}
			}
		}
	})
}
