package index

import (
	"iter"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/tvanderstad/parasol-db/internal/view"
)

// HashMap is a key/value projection of a source view that can answer queries
// at any seq. It keeps the fully folded state at its own watermark and derives
// other points in time from it: forward replay when the query is ahead,
// rewind when it is behind.
type HashMap[E any, K comparable, V any] struct {
	source    view.View[E]
	projector Projector[E, K, V]

	mu      sync.RWMutex
	current view.Seq
	state   map[K]V

	updates  atomic.Uint64
	ahead    atomic.Uint64
	behind   atomic.Uint64
	rebuilds atomic.Uint64
}

// Stats counts which query branch was taken. Rebuilds is a subset of Behind.
type Stats struct {
	Updates  uint64
	Ahead    uint64
	Behind   uint64
	Rebuilds uint64
}

// New returns an index at seq 0 over source.
func New[E any, K comparable, V any](source view.View[E], p Projector[E, K, V]) *HashMap[E, K, V] {
	return &HashMap[E, K, V]{
		source:    source,
		projector: p,
		state:     make(map[K]V),
	}
}

// CurrentSeq returns the index watermark.
func (h *HashMap[E, K, V]) CurrentSeq() view.Seq {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Update folds every op with CurrentSeq < seq' <= seq into the state and
// advances the watermark. A seq at or below the watermark is a no-op; a seq
// past the source's CurrentSeq is clamped to it so no record is skipped.
func (h *HashMap[E, K, V]) Update(seq view.Seq) {
	if src := h.source.CurrentSeq(); seq > src {
		seq = src
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if seq <= h.current {
		return
	}
	for _, op := range h.ops(h.current, seq, view.Forward) {
		op.apply(h.state)
	}
	h.current = seq
	h.updates.Add(1)
}

// GetAll returns the state as of seq: the fold of all ops with seq' <= seq.
// The returned map is owned by the caller.
func (h *HashMap[E, K, V]) GetAll(seq view.Seq) map[K]V {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if seq >= h.current {
		h.ahead.Add(1)
		out := maps.Clone(h.state)
		for _, op := range h.ops(h.current, seq, view.Forward) {
			op.apply(out)
		}
		return out
	}

	h.behind.Add(1)
	touched, cleared := h.touched(seq)
	if cleared {
		h.rebuilds.Add(1)
		return h.rebuild(seq)
	}

	out := maps.Clone(h.state)
	for _, op := range h.ops(0, seq, view.Backward) {
		if len(touched) == 0 {
			break
		}
		if op.Kind == OpClear {
			break
		}
		if _, ok := touched[op.Key]; !ok {
			continue
		}
		delete(touched, op.Key)
		op.apply(out)
	}
	// Whatever is still unresolved had no op at or before seq.
	for k := range touched {
		delete(out, k)
	}
	return out
}

// Get returns the value of key as of seq.
func (h *HashMap[E, K, V]) Get(seq view.Seq, key K) (V, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if seq >= h.current {
		h.ahead.Add(1)
		v, ok := h.state[key]
		for _, op := range h.ops(h.current, seq, view.Forward) {
			switch {
			case op.Kind == OpClear:
				ok = false
			case op.Key != key:
			case op.Kind == OpInsert:
				v, ok = op.Value, true
			case op.Kind == OpRemove:
				ok = false
			}
		}
		if !ok {
			var zero V
			return zero, false
		}
		return v, true
	}

	h.behind.Add(1)
	changed := false
	for _, op := range h.ops(seq, h.current, view.Forward) {
		if op.Kind == OpClear || op.Key == key {
			changed = true
			break
		}
	}
	if !changed {
		v, ok := h.state[key]
		return v, ok
	}
	for _, op := range h.ops(0, seq, view.Backward) {
		if op.Kind == OpClear {
			break
		}
		if op.Key != key {
			continue
		}
		if op.Kind == OpInsert {
			return op.Value, true
		}
		break
	}
	var zero V
	return zero, false
}

// Stats returns a snapshot of the branch counters.
func (h *HashMap[E, K, V]) Stats() Stats {
	return Stats{
		Updates:  h.updates.Load(),
		Ahead:    h.ahead.Load(),
		Behind:   h.behind.Load(),
		Rebuilds: h.rebuilds.Load(),
	}
}

// touched collects the keys modified in (seq, current]. It stops at the first
// Clear, since a Clear makes every key suspect.
func (h *HashMap[E, K, V]) touched(seq view.Seq) (map[K]struct{}, bool) {
	keys := make(map[K]struct{})
	for _, op := range h.ops(seq, h.current, view.Forward) {
		if op.Kind == OpClear {
			return nil, true
		}
		keys[op.Key] = struct{}{}
	}
	return keys, false
}

// rebuild derives the state at seq from scratch by scanning (0, seq]
// newest first. The newest op seen for a key decides it, and the first Clear
// ends the scan.
func (h *HashMap[E, K, V]) rebuild(seq view.Seq) map[K]V {
	out := make(map[K]V)
	seen := make(map[K]struct{})
	for _, op := range h.ops(0, seq, view.Backward) {
		if op.Kind == OpClear {
			break
		}
		if _, ok := seen[op.Key]; ok {
			continue
		}
		seen[op.Key] = struct{}{}
		if op.Kind == OpInsert {
			out[op.Key] = op.Value
		}
	}
	return out
}

// ops yields the projected ops of (lo, hi] in dir order. Backward walks each
// event's ops in reverse so the stream is the exact reverse of Forward.
func (h *HashMap[E, K, V]) ops(lo, hi view.Seq, dir view.Direction) iter.Seq2[view.Seq, Op[K, V]] {
	return func(yield func(view.Seq, Op[K, V]) bool) {
		for seq, ev := range h.source.Scan(lo, hi, dir) {
			ops := h.projector.Project(ev)
			if dir == view.Forward {
				for _, op := range ops {
					if !yield(seq, op) {
						return
					}
				}
				continue
			}
			for i := len(ops) - 1; i >= 0; i-- {
				if !yield(seq, ops[i]) {
					return
				}
			}
		}
	}
}

// Fold replays every op of v with seq' <= seq from an empty map.
func Fold[E any, K comparable, V any](v view.View[E], p Projector[E, K, V], seq view.Seq) map[K]V {
	out := make(map[K]V)
	for _, ev := range v.Scan(0, seq, view.Forward) {
		for _, op := range p.Project(ev) {
			op.apply(out)
		}
	}
	return out
}
