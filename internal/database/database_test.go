package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvanderstad/parasol-db/internal/index"
	"github.com/tvanderstad/parasol-db/internal/table"
	"github.com/tvanderstad/parasol-db/internal/view"
)

type pair struct{ k, v string }

var toInsert = index.ProjectorFunc[pair, string, string](func(p pair) []index.Op[string, string] {
	return []index.Op[string, string]{index.Insert(p.k, p.v)}
})

type recordingMetrics struct {
	writes  int
	events  int
	updates map[string]view.Seq
}

func (m *recordingMetrics) ObserveWrite(_ time.Duration, events int) {
	m.writes++
	m.events += events
}

func (m *recordingMetrics) ObserveIndexUpdate(name string, _ time.Duration, seq view.Seq) {
	if m.updates == nil {
		m.updates = map[string]view.Seq{}
	}
	m.updates[name] = seq
}

func TestWriteWithoutIndexes(t *testing.T) {
	tbl := table.New[pair]()
	db := New(Memory(tbl), Options{})

	seqs, err := db.Write(context.Background(), pair{"key1", "value1"}, pair{"key2", "value2"}, pair{"key3", "value3"}, pair{"key4", "value4"})
	require.NoError(t, err)
	assert.Equal(t, []view.Seq{1, 2, 3, 4}, seqs)
	assert.Equal(t, view.Seq(4), tbl.CurrentSeq())
	assert.Equal(t, view.Seq(4), db.CurrentSeq())
}

func TestWriteUpdatesIndexes(t *testing.T) {
	tbl := table.New[pair]()
	metrics := &recordingMetrics{}
	db := New(Memory(tbl), Options{Metrics: metrics})
	idx := index.New[pair, string, string](tbl, toInsert)
	db.Register("kv", idx)

	_, err := db.Write(context.Background(), pair{"key1", "value1"}, pair{"key2", "value2"}, pair{"key3", "value3"}, pair{"key4", "value4"})
	require.NoError(t, err)

	assert.Equal(t, view.Seq(4), idx.CurrentSeq())
	assert.Equal(t, map[string]string{
		"key1": "value1",
		"key2": "value2",
		"key3": "value3",
		"key4": "value4",
	}, idx.GetAll(4))
	assert.Equal(t, 1, metrics.writes)
	assert.Equal(t, 4, metrics.events)
	assert.Equal(t, view.Seq(4), metrics.updates["kv"])
}

func TestRegisterCatchesUp(t *testing.T) {
	tbl := table.New[pair]()
	db := New(Memory(tbl), Options{})
	_, err := db.Write(context.Background(), pair{"a", "1"}, pair{"b", "2"})
	require.NoError(t, err)

	late := index.New[pair, string, string](tbl, toInsert)
	db.Register("late", late)
	assert.Equal(t, view.Seq(2), late.CurrentSeq())

	assert.Panics(t, func() { db.Register("late", late) })
}

type failingLog struct{ current view.Seq }

func (f *failingLog) Append(context.Context, ...pair) ([]view.Seq, error) {
	return nil, errors.New("disk full")
}

func (f *failingLog) CurrentSeq() view.Seq { return f.current }

type countingUpdater struct{ calls int }

func (c *countingUpdater) Update(view.Seq)      { c.calls++ }
func (c *countingUpdater) CurrentSeq() view.Seq { return 0 }

func TestWriteErrorSkipsIndexes(t *testing.T) {
	db := New[pair](&failingLog{}, Options{})
	u := &countingUpdater{}
	db.Register("counting", u)
	require.Equal(t, 1, u.calls)

	_, err := db.Write(context.Background(), pair{"a", "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, u.calls)
}
