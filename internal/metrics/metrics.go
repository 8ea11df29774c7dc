package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/disk"

	"github.com/tvanderstad/parasol-db/internal/database"
	"github.com/tvanderstad/parasol-db/internal/index"
	pebblestore "github.com/tvanderstad/parasol-db/internal/storage/pebble"
	"github.com/tvanderstad/parasol-db/internal/view"
)

const namespace = "parasol"

// Metrics holds every Prometheus collector for one parasol runtime. Each
// Metrics owns its registry so several runtimes (or tests) can coexist.
type Metrics struct {
	registry *prometheus.Registry

	// Write dispatch
	TableAppendsTotal   *prometheus.CounterVec
	TableWriteDuration  *prometheus.HistogramVec
	IndexUpdateDuration *prometheus.HistogramVec
	IndexWatermark      *prometheus.GaugeVec

	// Storage
	StorageWriteBytes    prometheus.Histogram
	StorageWriteDuration prometheus.Histogram
	StorageReadBytes     prometheus.Histogram
	StorageReadDuration  prometheus.Histogram
	BatchCommitDuration  prometheus.Histogram
	BatchCommitOps       prometheus.Histogram
}

// New creates and registers all static collectors on a fresh registry. Go
// runtime and process collectors are included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TableAppendsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "appended_events_total",
			Help:      "Total number of events appended per table",
		}, []string{"table"}),
		TableWriteDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "write_duration_seconds",
			Help:      "Histogram of batch append durations per table",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table"}),
		IndexUpdateDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "update_duration_seconds",
			Help:      "Histogram of index update durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"index"}),
		IndexWatermark: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "watermark_seq",
			Help:      "Seq up to which each index has folded its source",
		}, []string{"index"}),

		StorageWriteBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "write_bytes",
			Help:      "Histogram of single-key write sizes in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 12),
		}),
		StorageWriteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "write_duration_seconds",
			Help:      "Histogram of single-key write durations",
			Buckets:   prometheus.DefBuckets,
		}),
		StorageReadBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "read_bytes",
			Help:      "Histogram of bytes returned per read or scan",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 16),
		}),
		StorageReadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "read_duration_seconds",
			Help:      "Histogram of read and scan durations",
			Buckets:   prometheus.DefBuckets,
		}),
		BatchCommitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_commit_duration_seconds",
			Help:      "Histogram of batch commit durations",
			Buckets:   prometheus.DefBuckets,
		}),
		BatchCommitOps: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_commit_ops",
			Help:      "Histogram of operations per committed batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Storage returns a pebblestore hook reporting into m.
func (m *Metrics) Storage() pebblestore.MetricsHook { return storageHook{m} }

// Dispatch returns a database hook labelled with the table it writes to.
func (m *Metrics) Dispatch(table string) database.MetricsHook {
	return dispatchHook{m: m, table: table}
}

// RegisterIndex exports the query branch counters of one index.
func (m *Metrics) RegisterIndex(name string, stats func() index.Stats) error {
	branches := map[string]func(index.Stats) uint64{
		"ahead":   func(s index.Stats) uint64 { return s.Ahead },
		"behind":  func(s index.Stats) uint64 { return s.Behind },
		"rebuild": func(s index.Stats) uint64 { return s.Rebuilds },
	}
	for branch, pick := range branches {
		c := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "index",
			Name:        "queries_total",
			Help:        "Index queries by the branch used to answer them",
			ConstLabels: prometheus.Labels{"index": name, "branch": branch},
		}, func() float64 { return float64(pick(stats())) })
		if err := m.registry.Register(c); err != nil {
			return fmt.Errorf("register index %s: %w", name, err)
		}
	}
	return nil
}

// RegisterComposite exports the current seq (vector clock minimum) of a
// composite view.
func (m *Metrics) RegisterComposite(name string, current func() view.Seq) error {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "composite",
		Name:        "current_seq",
		Help:        "Minimum vector clock entry of a composite view",
		ConstLabels: prometheus.Labels{"view": name},
	}, func() float64 { return float64(current()) })
	if err := m.registry.Register(g); err != nil {
		return fmt.Errorf("register composite %s: %w", name, err)
	}
	return nil
}

// RegisterDiskUsage exports the storage engine's on-disk size.
func (m *Metrics) RegisterDiskUsage(usage func() uint64) error {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "disk_usage_bytes",
		Help:      "Bytes held on disk by the storage engine",
	}, func() float64 { return float64(usage()) })
	return m.registry.Register(g)
}

// RegisterDiskFree exports the free and total bytes of the filesystem
// holding dir. Scrapes that fail to stat the filesystem report zero.
func (m *Metrics) RegisterDiskFree(dir string) error {
	usage := func(pick func(*disk.UsageStat) uint64) func() float64 {
		return func() float64 {
			u, err := disk.Usage(dir)
			if err != nil {
				return 0
			}
			return float64(pick(u))
		}
	}
	free := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "disk_free_bytes",
		Help:      "Free bytes on the filesystem holding the data dir",
	}, usage(func(u *disk.UsageStat) uint64 { return u.Free }))
	total := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "disk_total_bytes",
		Help:      "Total bytes of the filesystem holding the data dir",
	}, usage(func(u *disk.UsageStat) uint64 { return u.Total }))
	for _, c := range []prometheus.Collector{free, total} {
		if err := m.registry.Register(c); err != nil {
			return fmt.Errorf("register disk gauges: %w", err)
		}
	}
	return nil
}

type storageHook struct{ m *Metrics }

func (h storageHook) ObserveWrite(elapsed time.Duration, bytes int) {
	h.m.StorageWriteDuration.Observe(elapsed.Seconds())
	h.m.StorageWriteBytes.Observe(float64(bytes))
}

func (h storageHook) ObserveRead(elapsed time.Duration, bytes int) {
	h.m.StorageReadDuration.Observe(elapsed.Seconds())
	h.m.StorageReadBytes.Observe(float64(bytes))
}

func (h storageHook) ObserveBatchCommit(elapsed time.Duration, numOps int, _ int) {
	h.m.BatchCommitDuration.Observe(elapsed.Seconds())
	h.m.BatchCommitOps.Observe(float64(numOps))
}

type dispatchHook struct {
	m     *Metrics
	table string
}

func (h dispatchHook) ObserveWrite(elapsed time.Duration, events int) {
	h.m.TableAppendsTotal.WithLabelValues(h.table).Add(float64(events))
	h.m.TableWriteDuration.WithLabelValues(h.table).Observe(elapsed.Seconds())
}

func (h dispatchHook) ObserveIndexUpdate(name string, elapsed time.Duration, seq view.Seq) {
	h.m.IndexUpdateDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	h.m.IndexWatermark.WithLabelValues(name).Set(float64(seq))
}
