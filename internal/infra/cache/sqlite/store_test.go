package sqlite

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"siegelcore/internal/cache/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	payload := []byte(`{"precision":4}`)

	entry, err := s.Save(ctx, "aa11", 4, payload)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if entry.Precision != 4 || entry.Size != int64(len(payload)) || entry.Checksum == "" {
		t.Fatalf("entry = %+v", entry)
	}
	got, data, err := s.Load(ctx, "aa11")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("payload = %q", data)
	}
	if got.Precision != 4 || got.WrittenAt.IsZero() {
		t.Fatalf("loaded entry = %+v", got)
	}
}

func TestUpsertReplacesRow(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.Save(ctx, "aa11", 2, []byte("old")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Save(ctx, "aa11", 8, []byte("new")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entry, data, err := s.Load(ctx, "aa11")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if entry.Precision != 8 || string(data) != "new" {
		t.Fatalf("entry = %+v, payload = %q", entry, data)
	}
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("upsert duplicated the row: %+v", entries)
	}
}

func TestMissingEntry(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, _, err := s.Load(ctx, "bb22"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Load = %v, want ErrNotFound", err)
	}
	if _, err := s.Head(ctx, "bb22"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Head = %v, want ErrNotFound", err)
	}
	ok, err := s.Sufficient(ctx, "bb22", 0)
	if err != nil || ok {
		t.Fatalf("Sufficient = %v, %v", ok, err)
	}
}

func TestSufficientThreshold(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.Save(ctx, "cc33", 6, []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for target, want := range map[int]bool{5: true, 6: true, 7: false} {
		ok, err := s.Sufficient(ctx, "cc33", target)
		if err != nil {
			t.Fatalf("Sufficient(%d): %v", target, err)
		}
		if ok != want {
			t.Errorf("Sufficient(%d) = %v, want %v", target, ok, want)
		}
	}
}

func TestDeleteAndList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.Save(ctx, "ff", 1, []byte("b")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Save(ctx, "aa", 2, []byte("a")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Hash != "aa" || entries[1].Hash != "ff" {
		t.Fatalf("entries = %+v", entries)
	}
	existed, err := s.Delete(ctx, "aa")
	if err != nil || !existed {
		t.Fatalf("Delete = %v, %v", existed, err)
	}
	existed, err = s.Delete(ctx, "aa")
	if err != nil || existed {
		t.Fatalf("second Delete = %v, %v", existed, err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Save(ctx, "dd44", 3, []byte("durable")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	entry, data, err := reopened.Load(ctx, "dd44")
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if entry.Precision != 3 || string(data) != "durable" {
		t.Fatalf("entry = %+v, payload = %q", entry, data)
	}
}

func TestPing(t *testing.T) {
	s := newStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if s.Driver() != core.DriverSQLite {
		t.Fatalf("Driver = %s", s.Driver())
	}
}
