package catalog

import (
	"errors"
	"testing"

	pebblestore "github.com/tvanderstad/parasol-db/internal/storage/pebble"
)

func newTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEnsureIdempotent(t *testing.T) {
	db := newTestDB(t)

	m1, created, err := Ensure(db, "default", "json")
	if err != nil || !created {
		t.Fatalf("ensure1: created=%v err=%v", created, err)
	}
	m2, created, err := Ensure(db, "default", "json")
	if err != nil || created {
		t.Fatalf("ensure2: created=%v err=%v", created, err)
	}
	if m1 != m2 {
		t.Fatalf("not idempotent: %+v vs %+v", m1, m2)
	}
}

func TestEnsureCodecMismatch(t *testing.T) {
	db := newTestDB(t)
	if _, _, err := Ensure(db, "t", "json"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, _, err := Ensure(db, "t", "msgpack"); !errors.Is(err, ErrCodecMismatch) {
		t.Fatalf("expected ErrCodecMismatch, got %v", err)
	}
	if _, _, err := Ensure(db, "bad/name", "json"); err == nil {
		t.Fatalf("expected invalid name error")
	}
}

func TestGetAndList(t *testing.T) {
	db := newTestDB(t)
	if _, err := Get(db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, name := range []string{"users", "orders", "audit"} {
		if _, _, err := Ensure(db, name, "json"); err != nil {
			t.Fatalf("ensure %s: %v", name, err)
		}
	}
	// unrelated keys must not show up
	if err := db.Set([]byte("catalogue"), []byte("x")); err != nil {
		t.Fatalf("set: %v", err)
	}
	metas, err := List(db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(metas) != 3 || metas[0].Name != "audit" || metas[2].Name != "users" {
		t.Fatalf("unexpected list: %+v", metas)
	}
	m, err := Get(db, "orders")
	if err != nil || m.Codec != "json" || m.CreatedAtMs == 0 {
		t.Fatalf("get orders: %+v %v", m, err)
	}
}
