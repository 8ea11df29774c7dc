package kv

import (
	"context"
	"fmt"
	"iter"
	"maps"

	"github.com/tvanderstad/parasol-db/internal/database"
	"github.com/tvanderstad/parasol-db/internal/eventlog"
	"github.com/tvanderstad/parasol-db/internal/index"
	pebblestore "github.com/tvanderstad/parasol-db/internal/storage/pebble"
	"github.com/tvanderstad/parasol-db/internal/view"
	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

// Options configures a Store.
type Options struct {
	Logger  logpkg.Logger
	Metrics database.MetricsHook
}

// Store is a durable key/value table: a command log, its temporal index and
// the dispatcher keeping the index current.
type Store struct {
	name      string
	indexName string
	log       *eventlog.Log[Command]
	index     *index.HashMap[Command, string, string]
	db        *database.Database[Command]
	logger    logpkg.Logger
}

// Open opens table name on db. The index is rebuilt from the log and its
// watermark committed before Open returns.
func Open(db *pebblestore.DB, name string, codec eventlog.Codec[Command], opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNop()
	}
	l, err := eventlog.OpenLog(db, name, codec, logger)
	if err != nil {
		return nil, err
	}
	s := &Store{
		name:      name,
		indexName: name + "-kv",
		log:       l,
		index:     index.New[Command, string, string](l, Projector),
		db:        database.New[Command](l, database.Options{Logger: logger, Metrics: opts.Metrics}),
		logger:    logger.WithComponent("kv").With(logpkg.Table(name)),
	}
	prev, _ := l.Watermark(s.indexName)
	// A watermark past the log means acknowledged records were lost.
	if prev > l.CurrentSeq() {
		return nil, fmt.Errorf("%w: %s watermark %d, log at %d", eventlog.ErrCorruptMeta, s.indexName, prev, l.CurrentSeq())
	}
	s.db.Register(s.indexName, s.index)
	if err := s.checkpoint(); err != nil {
		return nil, err
	}
	s.logger.Debug("store opened",
		logpkg.Uint64("seq", l.CurrentSeq()),
		logpkg.Uint64("previousWatermark", prev))
	return s, nil
}

// Name returns the table name.
func (s *Store) Name() string { return s.name }

// IndexName is the name the index is registered and checkpointed under.
func (s *Store) IndexName() string { return s.indexName }

// Log exposes the underlying command log.
func (s *Store) Log() *eventlog.Log[Command] { return s.log }

// Index exposes the temporal index.
func (s *Store) Index() *index.HashMap[Command, string, string] { return s.index }

// CurrentSeq returns the last assigned seq.
func (s *Store) CurrentSeq() view.Seq { return s.log.CurrentSeq() }

// Apply writes cmds as one batch and returns the seq of the last one.
func (s *Store) Apply(ctx context.Context, cmds ...Command) (view.Seq, error) {
	if len(cmds) == 0 {
		return s.CurrentSeq(), nil
	}
	seqs, err := s.db.Write(ctx, cmds...)
	if err != nil {
		return 0, err
	}
	if err := s.checkpoint(); err != nil {
		return 0, err
	}
	return seqs[len(seqs)-1], nil
}

func (s *Store) Put(ctx context.Context, key, value string) (view.Seq, error) {
	return s.Apply(ctx, Put(key, value))
}

func (s *Store) Del(ctx context.Context, key string) (view.Seq, error) {
	return s.Apply(ctx, Del(key))
}

func (s *Store) Clear(ctx context.Context) (view.Seq, error) {
	return s.Apply(ctx, ClearAll())
}

// Get returns the value of key as of seq.
func (s *Store) Get(seq view.Seq, key string) (string, bool) {
	return s.index.Get(seq, key)
}

// State returns every key/value pair as of seq.
func (s *Store) State(seq view.Seq) map[string]string {
	return s.index.GetAll(seq)
}

// Scan yields the commands of (lo, hi] in dir order.
func (s *Store) Scan(lo, hi view.Seq, dir view.Direction) iter.Seq2[view.Seq, Command] {
	return s.log.Scan(lo, hi, dir)
}

// Verify compares the index answer at seq with a full replay of the log.
func (s *Store) Verify(seq view.Seq) error {
	got := s.index.GetAll(seq)
	want := index.Fold[Command, string, string](s.log, Projector, seq)
	if !maps.Equal(got, want) {
		return fmt.Errorf("index %s diverges from replay at seq %d: %d keys vs %d", s.indexName, seq, len(got), len(want))
	}
	return nil
}

func (s *Store) checkpoint() error {
	if err := s.log.CommitWatermark(s.indexName, s.index.CurrentSeq()); err != nil {
		return fmt.Errorf("checkpoint %s: %w", s.indexName, err)
	}
	return nil
}
