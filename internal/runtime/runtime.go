package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tvanderstad/parasol-db/internal/catalog"
	"github.com/tvanderstad/parasol-db/internal/composite"
	cfgpkg "github.com/tvanderstad/parasol-db/internal/config"
	"github.com/tvanderstad/parasol-db/internal/database"
	"github.com/tvanderstad/parasol-db/internal/kv"
	"github.com/tvanderstad/parasol-db/internal/metrics"
	pebblestore "github.com/tvanderstad/parasol-db/internal/storage/pebble"
	"github.com/tvanderstad/parasol-db/internal/view"
	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

var (
	ErrTableNotAllowed = errors.New("table not allowed")
	ErrTooManyTables   = errors.New("table limit reached")
)

// Options for building the Runtime.
type Options struct {
	// DataDir overrides Config.DataDir.
	DataDir string
	// Fsync overrides Config.Fsync when not FsyncModeUnspecified.
	Fsync  pebblestore.FsyncMode
	Config cfgpkg.Config
	Logger logpkg.Logger
}

// Runtime wires storage, config, metrics and tables for a single-node instance.
type Runtime struct {
	db      *pebblestore.DB
	config  cfgpkg.Config
	dataDir string
	logger  logpkg.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	stores map[string]*kv.Store
	merges map[string]*composite.View[kv.Command]
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	dir, err := cfgpkg.ResolveDataDir(cfg)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dir

	fsync := opts.Fsync
	if fsync == pebblestore.FsyncModeUnspecified {
		if fsync, err = pebblestore.ParseFsyncMode(cfg.Fsync); err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNop()
	}

	var m *metrics.Metrics
	var hook pebblestore.MetricsHook
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Runtime)
		hook = m.Storage()
	}

	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       dir,
		Fsync:         fsync,
		FsyncInterval: time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
		Metrics:       hook,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	if m != nil {
		if err := m.RegisterDiskUsage(db.DiskUsage); err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := m.RegisterDiskFree(dir); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	rt := &Runtime{
		db:      db,
		config:  cfg,
		dataDir: dir,
		logger:  logger.WithComponent("runtime"),
		metrics: m,
		stores:  make(map[string]*kv.Store),
		merges:  make(map[string]*composite.View[kv.Command]),
	}
	rt.logger.Info("runtime opened",
		logpkg.Str("dataDir", dir),
		logpkg.Str("fsync", fsync.String()),
		logpkg.Str("codec", cfg.Codec))
	return rt, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// EnsureTable creates a table record if absent, applying the configured name
// pattern, allow-list and table limit to new tables.
func (r *Runtime) EnsureTable(name string) (catalog.Meta, error) {
	if m, err := catalog.Get(r.db, name); err == nil {
		return m, nil
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return catalog.Meta{}, err
	}

	re, err := r.config.TableNamePattern()
	if err != nil {
		return catalog.Meta{}, err
	}
	if !re.MatchString(name) {
		return catalog.Meta{}, fmt.Errorf("%w: %q does not match %s", ErrTableNotAllowed, name, re)
	}
	if len(r.config.AllowedTables) > 0 && !slices.Contains(r.config.AllowedTables, name) {
		return catalog.Meta{}, fmt.Errorf("%w: %q is not in the allow-list", ErrTableNotAllowed, name)
	}
	if r.config.MaxTables > 0 {
		existing, err := catalog.List(r.db)
		if err != nil {
			return catalog.Meta{}, err
		}
		if len(existing) >= r.config.MaxTables {
			return catalog.Meta{}, fmt.Errorf("%w: %d", ErrTooManyTables, r.config.MaxTables)
		}
	}
	m, created, err := catalog.Ensure(r.db, name, r.config.Codec)
	if err != nil {
		return catalog.Meta{}, err
	}
	if created {
		r.logger.Info("table created", logpkg.Table(name), logpkg.Str("codec", m.Codec))
	}
	return m, nil
}

// Tables lists every known table.
func (r *Runtime) Tables() ([]catalog.Meta, error) {
	return catalog.List(r.db)
}

// OpenKV opens (and caches) the key/value store for table name. Unknown
// tables are created when AllowAutoCreateTables is set.
func (r *Runtime) OpenKV(name string) (*kv.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[name]; ok {
		return s, nil
	}

	meta, err := catalog.Get(r.db, name)
	switch {
	case errors.Is(err, catalog.ErrNotFound) && r.config.AllowAutoCreateTables:
		if meta, err = r.EnsureTable(name); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	codec, err := kv.Codec(meta.Codec)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	var hook database.MetricsHook
	if r.metrics != nil {
		hook = r.metrics.Dispatch(name)
	}
	s, err := kv.Open(r.db, name, codec, kv.Options{Logger: r.logger, Metrics: hook})
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		if err := r.metrics.RegisterIndex(s.IndexName(), s.Index().Stats); err != nil {
			return nil, err
		}
	}
	r.stores[name] = s
	return s, nil
}

// Merge opens the named tables and merges them into one composite view. The
// view is shared by every Merge of the same table list; each call advances
// its vector clock to the members' current seqs.
func (r *Runtime) Merge(names ...string) (*composite.View[kv.Command], error) {
	stores := make([]*kv.Store, len(names))
	for i, name := range names {
		s, err := r.OpenKV(name)
		if err != nil {
			return nil, err
		}
		stores[i] = s
	}

	key := strings.Join(names, ",")
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.merges[key]
	if !ok {
		members := make([]view.View[kv.Command], len(stores))
		for i, s := range stores {
			members[i] = s.Log()
		}
		c = composite.New(members...)
		if r.metrics != nil {
			if err := r.metrics.RegisterComposite(key, c.CurrentSeq); err != nil {
				return nil, err
			}
		}
		r.merges[key] = c
	}
	// Store seqs only grow, and updates are serialized by mu.
	for i, s := range stores {
		c.VectorClockUpdate(i, s.CurrentSeq())
	}
	return c, nil
}

// Metrics returns the runtime's collectors, or nil when metrics are disabled.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

// MetricsHandler serves Prometheus metrics, or 404 when metrics are disabled.
func (r *Runtime) MetricsHandler() http.Handler {
	if r.metrics == nil {
		return http.NotFoundHandler()
	}
	return r.metrics.Handler()
}

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the effective runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// DataDir returns the resolved data directory.
func (r *Runtime) DataDir() string { return r.dataDir }
