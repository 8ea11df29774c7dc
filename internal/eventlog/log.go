package eventlog

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	pebblestore "github.com/tvanderstad/parasol-db/internal/storage/pebble"
	"github.com/tvanderstad/parasol-db/internal/view"
	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

var ErrCorruptMeta = errors.New("eventlog: corrupt table metadata")

// Log is a durable, append-only table of events of type E stored in Pebble.
// It implements view.View.
type Log[E any] struct {
	db     *pebblestore.DB
	name   string
	codec  Codec[E]
	logger logpkg.Logger

	mu       sync.RWMutex
	lastSeq  uint64
	notifyCh chan struct{}

	wmMu sync.Mutex
}

var _ view.View[[]byte] = (*Log[[]byte])(nil)

// OpenLog initializes a Log and loads the last seq from metadata (if any).
func OpenLog[E any](db *pebblestore.DB, name string, codec Codec[E], logger logpkg.Logger) (*Log[E], error) {
	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	if logger == nil {
		logger = logpkg.NewNop()
	}
	l := &Log[E]{
		db:       db,
		name:     name,
		codec:    codec,
		logger:   logger.WithComponent("eventlog").With(logpkg.Table(name)),
		notifyCh: make(chan struct{}),
	}
	meta, err := db.Get(KeyTableMeta(name))
	switch {
	case errors.Is(err, pebblestore.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load meta for %s: %w", name, err)
	case len(meta) < 8:
		return nil, fmt.Errorf("%w: %s has %d meta bytes", ErrCorruptMeta, name, len(meta))
	default:
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return l, nil
}

// Name returns the table name.
func (l *Log[E]) Name() string { return l.name }

// Codec returns the codec events are stored with.
func (l *Log[E]) Codec() Codec[E] { return l.codec }

// CurrentSeq returns the last assigned seq (0 if empty).
func (l *Log[E]) CurrentSeq() view.Seq {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastSeq
}

// Append writes events as a single atomic batch and returns the assigned
// seqs. On error nothing is written and CurrentSeq is unchanged.
func (l *Log[E]) Append(ctx context.Context, events ...E) ([]view.Seq, error) {
	if len(events) == 0 {
		return nil, nil
	}
	vals := make([][]byte, len(events))
	for i, ev := range events {
		payload, err := l.codec.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("encode event %d: %w", i, err)
		}
		vals[i] = EncodeRecord(payload)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	seqs := make([]view.Seq, len(events))
	next := l.lastSeq
	for i, val := range vals {
		next++
		if err := b.Set(KeyTableEntry(l.name, next), val, nil); err != nil {
			return nil, err
		}
		seqs[i] = next
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], next)
	if err := b.Set(KeyTableMeta(l.name), meta[:], nil); err != nil {
		return nil, err
	}

	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("commit append to %s: %w", l.name, err)
	}
	l.lastSeq = next
	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
	return seqs, nil
}
