package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/tvanderstad/parasol-db/internal/eventlog"
	"github.com/tvanderstad/parasol-db/internal/filter"
	"github.com/tvanderstad/parasol-db/internal/view"
	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

// tailPoll bounds how long Tail blocks between context checks.
const tailPoll = 250 * time.Millisecond

// Filters always see commands as JSON so expressions like json.key work
// regardless of the table's storage codec.
var filterCodec = eventlog.JSONCodec[Command]{}

// Validate rejects commands a projector would silently drop.
func (c Command) Validate() error {
	switch c.Op {
	case OpPut, OpDel:
		if c.Key == "" {
			return fmt.Errorf("%s: empty key", c.Op)
		}
		return nil
	case OpClear:
		return nil
	default:
		return fmt.Errorf("unknown op %q", c.Op)
	}
}

// Find returns the commands of (lo, hi] in dir order that match f, stopping
// after limit matches. A non-positive limit returns every match.
func (s *Store) Find(lo, hi view.Seq, dir view.Direction, f filter.Filter, limit int) []view.Record[Command] {
	if f.Enabled() && s.log.Codec().Name() == filterCodec.Name() {
		return s.findRaw(lo, hi, dir, f, limit)
	}
	v := view.Filtered[Command](s.log, filter.Predicate(f, filterCodec.Marshal))
	var out []view.Record[Command]
	for seq, c := range v.Scan(lo, hi, dir) {
		out = append(out, view.Record[Command]{Seq: seq, Event: c})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// findRaw evaluates f on the stored JSON payloads and decodes only matches.
func (s *Store) findRaw(lo, hi view.Seq, dir view.Direction, f filter.Filter, limit int) []view.Record[Command] {
	var out []view.Record[Command]
	for seq, payload := range s.log.Raw(lo, hi, dir) {
		if !f.Match(seq, payload) {
			continue
		}
		c, err := s.log.Codec().Unmarshal(payload)
		if err != nil {
			s.logger.Warn("skipping undecodable command", logpkg.Uint64("seq", seq), logpkg.Err(err))
			continue
		}
		out = append(out, view.Record[Command]{Seq: seq, Event: c})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Tail calls fn for every command after seq from, in order, then keeps
// waiting for new appends until ctx is done or fn returns an error. A nil
// error is returned when ctx ends.
func (s *Store) Tail(ctx context.Context, from view.Seq, f filter.Filter, fn func(view.Record[Command]) error) error {
	v := view.Filtered[Command](s.log, filter.Predicate(f, filterCodec.Marshal))
	next := from
	for {
		if ctx.Err() != nil {
			return nil
		}
		current := s.log.CurrentSeq()
		for seq, c := range v.Scan(next, current, view.Forward) {
			if err := fn(view.Record[Command]{Seq: seq, Event: c}); err != nil {
				return err
			}
		}
		if current > next {
			next = current
		}
		for s.log.CurrentSeq() <= next {
			if ctx.Err() != nil {
				return nil
			}
			s.log.WaitForAppend(tailPoll)
		}
	}
}
