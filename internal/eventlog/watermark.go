package eventlog

import (
	"encoding/binary"
	"errors"
	"fmt"

	pebblestore "github.com/tvanderstad/parasol-db/internal/storage/pebble"
	"github.com/tvanderstad/parasol-db/internal/view"
)

// CommitWatermark durably records that consumer name has processed the log up
// to seq. Commits are idempotent; a seq lower than the stored one is ignored.
func (l *Log[E]) CommitWatermark(name string, seq view.Seq) error {
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("commit watermark: %w", err)
	}
	l.wmMu.Lock()
	defer l.wmMu.Unlock()

	key := KeyWatermark(l.name, name)
	cur, err := l.db.Get(key)
	switch {
	case errors.Is(err, pebblestore.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load watermark %s: %w", name, err)
	case len(cur) >= 8 && seq <= binary.BigEndian.Uint64(cur[:8]):
		return nil
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return l.db.Set(key, b[:])
}

// Watermark loads the committed watermark for consumer name.
func (l *Log[E]) Watermark(name string) (view.Seq, bool) {
	cur, err := l.db.Get(KeyWatermark(l.name, name))
	if err != nil || len(cur) < 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(cur[:8]), true
}
