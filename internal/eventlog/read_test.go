package eventlog

import (
	"testing"

	"github.com/tvanderstad/parasol-db/internal/view"
)

func seqsOf(recs []view.Record[order]) []view.Seq {
	out := make([]view.Seq, len(recs))
	for i, r := range recs {
		out[i] = r.Seq
	}
	return out
}

func equalSeqs(a, b []view.Seq) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScanForward(t *testing.T) {
	l := seedLog(t, 5)
	got := seqsOf(view.Collect(l.Scan(1, 3, view.Forward)))
	if !equalSeqs(got, []view.Seq{2, 3}) {
		t.Fatalf("scan(1,3) = %v", got)
	}
}

func TestScanBackward(t *testing.T) {
	l := seedLog(t, 4)
	got := seqsOf(view.Collect(view.Between[order](l, 3, 1)))
	if !equalSeqs(got, []view.Seq{3, 2}) {
		t.Fatalf("scan(3,1) = %v", got)
	}
}

func TestScanOutOfRange(t *testing.T) {
	l := seedLog(t, 3)
	if got := view.Collect(l.Scan(2, 2, view.Forward)); len(got) != 0 {
		t.Fatalf("empty range yielded %v", got)
	}
	if got := seqsOf(view.Collect(l.Scan(2, ^uint64(0), view.Forward))); !equalSeqs(got, []view.Seq{3}) {
		t.Fatalf("scan to max = %v", got)
	}
	if got := view.Collect(l.Scan(5, 9, view.Backward)); len(got) != 0 {
		t.Fatalf("scan past end yielded %v", got)
	}
}

func TestReverseSymmetry(t *testing.T) {
	l := seedLog(t, 7)
	for lo := view.Seq(0); lo <= 8; lo++ {
		for hi := lo; hi <= 8; hi++ {
			fwd := view.Collect(l.Scan(lo, hi, view.Forward))
			back := view.Collect(l.Scan(lo, hi, view.Backward))
			rev := view.Reversed(back)
			if len(fwd) != len(rev) {
				t.Fatalf("(%d,%d]: %d forward vs %d backward", lo, hi, len(fwd), len(rev))
			}
			for i := range fwd {
				if fwd[i] != rev[i] {
					t.Fatalf("(%d,%d]: mismatch at %d", lo, hi, i)
				}
			}
		}
	}
}

func TestRecordsLimit(t *testing.T) {
	l := seedLog(t, 5)
	recs, err := l.Records(0, 5, view.Backward, 2)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if got := seqsOf(recs); !equalSeqs(got, []view.Seq{5, 4}) {
		t.Fatalf("records = %v", got)
	}
	all, err := l.Records(0, 5, view.Forward, 0)
	if err != nil || len(all) != 5 {
		t.Fatalf("unlimited records = %d, %v", len(all), err)
	}
}

func TestScanSkipsCorruptEntries(t *testing.T) {
	l := seedLog(t, 3)
	if err := l.db.Set(KeyTableEntry(l.name, 2), []byte("garbage")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got := seqsOf(view.Collect(l.Scan(0, 3, view.Forward)))
	if !equalSeqs(got, []view.Seq{1, 3}) {
		t.Fatalf("scan = %v, want [1 3]", got)
	}
}

func TestRawPayloads(t *testing.T) {
	l := seedLog(t, 2)
	var payloads []string
	for _, p := range l.Raw(0, 2, view.Forward) {
		payloads = append(payloads, string(p))
	}
	if len(payloads) != 2 || payloads[0] != `{"id":"a","units":1}` {
		t.Fatalf("raw payloads = %q", payloads)
	}
}
