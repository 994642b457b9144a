package fs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"siegelcore/internal/cache/core"
)

const testHash = "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewRequiresExistingRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("empty root should fail")
	}
	missing := filepath.Join(t.TempDir(), "nope")
	if _, err := New(missing); err == nil {
		t.Fatal("missing root should fail, the store must not create it")
	}
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(file); err == nil {
		t.Fatal("non-directory root should fail")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	payload := []byte(`{"weight":10}`)

	entry, err := s.Save(ctx, testHash, 7, payload)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if entry.Precision != 7 || entry.Size != int64(len(payload)) {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.Checksum == "" || entry.WrittenAt.IsZero() {
		t.Fatalf("entry missing checksum or timestamp: %+v", entry)
	}

	got, data, err := s.Load(ctx, testHash)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("payload = %q, want %q", data, payload)
	}
	if got.Precision != 7 || got.Checksum != entry.Checksum {
		t.Fatalf("loaded entry = %+v, want %+v", got, entry)
	}
}

func TestSaveOverwritesBothWays(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, testHash, 3, []byte("low")); err != nil {
		t.Fatalf("Save low: %v", err)
	}
	if _, err := s.Save(ctx, testHash, 9, []byte("high")); err != nil {
		t.Fatalf("Save high: %v", err)
	}
	e, data, err := s.Load(ctx, testHash)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e.Precision != 9 || string(data) != "high" {
		t.Fatalf("after raise: %+v %q", e, data)
	}

	// Forced recomputes may legitimately lower the stored precision.
	if _, err := s.Save(ctx, testHash, 2, []byte("forced")); err != nil {
		t.Fatalf("Save forced: %v", err)
	}
	e, data, err = s.Load(ctx, testHash)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e.Precision != 2 || string(data) != "forced" {
		t.Fatalf("after lower: %+v %q", e, data)
	}
}

func TestHeadAndSufficient(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if _, err := s.Head(ctx, testHash); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Head on missing = %v, want ErrNotFound", err)
	}
	ok, err := s.Sufficient(ctx, testHash, 1)
	if err != nil || ok {
		t.Fatalf("Sufficient on missing = %v, %v", ok, err)
	}

	if _, err := s.Save(ctx, testHash, 5, []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for target, want := range map[int]bool{4: true, 5: true, 6: false} {
		ok, err := s.Sufficient(ctx, testHash, target)
		if err != nil {
			t.Fatalf("Sufficient(%d): %v", target, err)
		}
		if ok != want {
			t.Errorf("Sufficient(%d) = %v, want %v", target, ok, want)
		}
	}
}

func TestLoadMissing(t *testing.T) {
	s := newStore(t)
	if _, _, err := s.Load(context.Background(), testHash); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Load = %v, want ErrNotFound", err)
	}
}

func TestPayloadWithoutHeaderIsAMiss(t *testing.T) {
	s := newStore(t)
	// A torn write leaves the payload but no sidecar.
	if err := os.WriteFile(filepath.Join(s.root, testHash+".dat"), []byte("torn"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := s.Load(context.Background(), testHash); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Load = %v, want ErrNotFound", err)
	}
	ok, err := s.Sufficient(context.Background(), testHash, 1)
	if err != nil || ok {
		t.Fatalf("Sufficient = %v, %v, want miss", ok, err)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	existed, err := s.Delete(ctx, testHash)
	if err != nil || existed {
		t.Fatalf("Delete on missing = %v, %v", existed, err)
	}
	if _, err := s.Save(ctx, testHash, 1, []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	existed, err = s.Delete(ctx, testHash)
	if err != nil || !existed {
		t.Fatalf("Delete = %v, %v", existed, err)
	}
	if _, err := s.Head(ctx, testHash); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Head after delete = %v, want ErrNotFound", err)
	}
}

func TestListSortsByHash(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	second := strings.Repeat("ff", 32)
	first := strings.Repeat("00", 32)
	if _, err := s.Save(ctx, second, 1, []byte("b")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Save(ctx, first, 2, []byte("a")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Hash != first || entries[1].Hash != second {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestRejectsPathLikeHashes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, h := range []string{"", "../escape", "a/b", "ABCDEF", "xyz", "aa..bb"} {
		if _, err := s.Save(ctx, h, 1, []byte("x")); err == nil {
			t.Errorf("Save(%q) should fail", h)
		}
		if _, _, err := s.Load(ctx, h); err == nil {
			t.Errorf("Load(%q) should fail", h)
		}
	}
}

func TestPing(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("Ping should fail once the root is gone")
	}
}
