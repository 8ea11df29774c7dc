package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/tvanderstad/parasol-db/internal/eventlog"
	pebblestore "github.com/tvanderstad/parasol-db/internal/storage/pebble"
)

var (
	ErrNotFound      = errors.New("catalog: table not found")
	ErrCodecMismatch = errors.New("catalog: codec mismatch")
)

// Meta holds table metadata.
type Meta struct {
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
	Codec       string `json:"codec"`
}

var (
	metaPrefix = []byte("catalog/")
	// metaEnd is the first key after every catalog key ('/' + 1).
	metaEnd = []byte("catalog0")
)

func metaKey(name string) []byte {
	k := make([]byte, 0, len(metaPrefix)+len(name))
	k = append(k, metaPrefix...)
	return append(k, name...)
}

// Get loads the metadata of one table.
func Get(db *pebblestore.DB, name string) (Meta, error) {
	b, err := db.Get(metaKey(name))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return Meta{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, fmt.Errorf("decode catalog entry %s: %w", name, err)
	}
	return m, nil
}

// Ensure creates a table record if absent and returns the effective meta.
// Idempotent: an existing record is returned unchanged, unless it was created
// with a different codec, which is an error since its entries could not be
// decoded. created reports whether a new record was written.
func Ensure(db *pebblestore.DB, name, codec string) (m Meta, created bool, err error) {
	if err := eventlog.ValidateName(name); err != nil {
		return Meta{}, false, err
	}
	m, err = Get(db, name)
	switch {
	case err == nil:
		if m.Codec != codec {
			return Meta{}, false, fmt.Errorf("%w: table %s uses %s, not %s", ErrCodecMismatch, name, m.Codec, codec)
		}
		return m, false, nil
	case !errors.Is(err, ErrNotFound):
		return Meta{}, false, err
	}
	m = Meta{Name: name, CreatedAtMs: time.Now().UnixMilli(), Codec: codec}
	b, err := json.Marshal(m)
	if err != nil {
		return Meta{}, false, err
	}
	if err := db.Set(metaKey(name), b); err != nil {
		return Meta{}, false, err
	}
	return m, true, nil
}

// List returns every table record in name order.
func List(db *pebblestore.DB) ([]Meta, error) {
	it, err := db.NewIter(&pebble.IterOptions{LowerBound: metaPrefix, UpperBound: metaEnd})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []Meta
	for valid := it.First(); valid; valid = it.Next() {
		var m Meta
		if err := json.Unmarshal(it.Value(), &m); err != nil {
			return nil, fmt.Errorf("decode catalog entry %q: %w", it.Key(), err)
		}
		out = append(out, m)
	}
	return out, it.Error()
}
