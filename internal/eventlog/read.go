package eventlog

import (
	"fmt"
	"iter"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/tvanderstad/parasol-db/internal/view"
	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

// Scan yields records with lo < seq <= hi. Each range over the result opens
// a fresh Pebble iterator, which sees a consistent point-in-time state.
// Entries that fail their checksum or do not decode are logged and skipped;
// use Records to observe storage errors.
func (l *Log[E]) Scan(lo, hi view.Seq, dir view.Direction) iter.Seq2[view.Seq, E] {
	return func(yield func(view.Seq, E) bool) {
		if err := l.scan(lo, hi, dir, yield); err != nil {
			l.logger.Error("scan failed", logpkg.Err(err),
				logpkg.Uint64("lo", lo), logpkg.Uint64("hi", hi))
		}
	}
}

// Records returns up to limit records of (lo, hi] in dir order. A limit of 0
// means no limit.
func (l *Log[E]) Records(lo, hi view.Seq, dir view.Direction, limit int) ([]view.Record[E], error) {
	var out []view.Record[E]
	err := l.scan(lo, hi, dir, func(seq view.Seq, ev E) bool {
		out = append(out, view.Record[E]{Seq: seq, Event: ev})
		return limit == 0 || len(out) < limit
	})
	return out, err
}

// Raw yields the undecoded payloads of (lo, hi], for filters that evaluate
// stored bytes directly.
func (l *Log[E]) Raw(lo, hi view.Seq, dir view.Direction) iter.Seq2[view.Seq, []byte] {
	return func(yield func(view.Seq, []byte) bool) {
		err := l.iterate(lo, hi, dir, func(seq view.Seq, payload []byte) bool {
			return yield(seq, payload)
		})
		if err != nil {
			l.logger.Error("raw scan failed", logpkg.Err(err))
		}
	}
}

func (l *Log[E]) scan(lo, hi view.Seq, dir view.Direction, fn func(view.Seq, E) bool) error {
	return l.iterate(lo, hi, dir, func(seq view.Seq, payload []byte) bool {
		ev, err := l.codec.Unmarshal(payload)
		if err != nil {
			l.logger.Warn("skipping undecodable entry", logpkg.Uint64("seq", seq), logpkg.Err(err))
			return true
		}
		return fn(seq, ev)
	})
}

func (l *Log[E]) iterate(lo, hi view.Seq, dir view.Direction, fn func(view.Seq, []byte) bool) error {
	if lo >= hi {
		return nil
	}
	lower, upper := entryBounds(l.name, lo, hi)
	it, err := l.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return fmt.Errorf("open iterator on %s: %w", l.name, err)
	}
	defer it.Close()

	start := time.Now()
	bytes := 0
	defer func() { l.db.ObserveRead(time.Since(start), bytes) }()

	valid := it.First()
	step := it.Next
	if dir == view.Backward {
		valid = it.Last()
		step = it.Prev
	}
	for ; valid; valid = step() {
		seq := seqFromEntryKey(it.Key())
		raw := it.Value()
		bytes += len(raw)
		payload, ok := DecodeRecord(raw)
		if !ok {
			l.logger.Warn("skipping corrupt entry", logpkg.Uint64("seq", seq))
			continue
		}
		if !fn(seq, payload) {
			break
		}
	}
	return it.Error()
}
