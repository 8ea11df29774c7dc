package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tvanderstad/parasol-db/internal/table"
	"github.com/tvanderstad/parasol-db/internal/view"
	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

// Writable is the base log a Database appends to.
type Writable[E any] interface {
	Append(ctx context.Context, events ...E) ([]view.Seq, error)
	CurrentSeq() view.Seq
}

// Updater is a derived structure kept current with the base log, such as an
// index.HashMap.
type Updater interface {
	Update(seq view.Seq)
	CurrentSeq() view.Seq
}

// MetricsHook observes write dispatch.
type MetricsHook interface {
	ObserveWrite(elapsed time.Duration, events int)
	ObserveIndexUpdate(name string, elapsed time.Duration, seq view.Seq)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveWrite(time.Duration, int)                     {}
func (NoopMetrics) ObserveIndexUpdate(string, time.Duration, view.Seq) {}

// Options configures a Database.
type Options struct {
	Logger  logpkg.Logger
	Metrics MetricsHook
}

type derived struct {
	name    string
	updater Updater
}

// Database appends to a base log and then brings every registered index up
// to the base log's CurrentSeq, all under one mutex.
type Database[E any] struct {
	mu      sync.Mutex
	base    Writable[E]
	derived []derived
	logger  logpkg.Logger
	metrics MetricsHook
}

// New returns a Database writing to base.
func New[E any](base Writable[E], opts Options) *Database[E] {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Database[E]{
		base:    base,
		logger:  logger.WithComponent("database"),
		metrics: metrics,
	}
}

// Register adds u to the set of updaters and catches it up immediately.
func (d *Database[E]) Register(name string, u Updater) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, x := range d.derived {
		if x.name == name {
			panic(fmt.Sprintf("database: updater %q registered twice", name))
		}
	}
	d.derived = append(d.derived, derived{name: name, updater: u})
	d.updateLocked(d.derived[len(d.derived)-1], d.base.CurrentSeq())
}

// Write appends events to the base log and updates every registered index.
// Indexes are not updated when the append fails.
func (d *Database[E]) Write(ctx context.Context, events ...E) ([]view.Seq, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	seqs, err := d.base.Append(ctx, events...)
	if err != nil {
		return nil, fmt.Errorf("append: %w", err)
	}
	d.metrics.ObserveWrite(time.Since(start), len(events))

	current := d.base.CurrentSeq()
	for _, x := range d.derived {
		d.updateLocked(x, current)
	}
	d.logger.Debug("write applied",
		logpkg.Int("events", len(events)),
		logpkg.Uint64("seq", current),
		logpkg.Int("indexes", len(d.derived)),
	)
	return seqs, nil
}

func (d *Database[E]) updateLocked(x derived, seq view.Seq) {
	start := time.Now()
	x.updater.Update(seq)
	d.metrics.ObserveIndexUpdate(x.name, time.Since(start), x.updater.CurrentSeq())
}

// CurrentSeq returns the base log's CurrentSeq.
func (d *Database[E]) CurrentSeq() view.Seq {
	return d.base.CurrentSeq()
}

// Memory adapts an in-memory table to Writable. Appends never fail.
func Memory[E any](t *table.Table[E]) Writable[E] {
	return memory[E]{t: t}
}

type memory[E any] struct {
	t *table.Table[E]
}

func (m memory[E]) Append(_ context.Context, events ...E) ([]view.Seq, error) {
	return m.t.Append(events...), nil
}

func (m memory[E]) CurrentSeq() view.Seq { return m.t.CurrentSeq() }
