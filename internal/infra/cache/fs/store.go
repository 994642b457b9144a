// Package fs implements the artifact cache on the local filesystem.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"siegelcore/internal/cache/core"
)

// Store implements core.Store using one payload file plus a `.meta` sidecar
// per entry. The sidecar is the authoritative header: a payload without one
// is treated as missing. Writes go through temp files and renames; the
// sidecar of a replaced entry is removed before the new payload lands, so an
// interrupted Save leaves a miss rather than a header describing bytes that
// were never written.
type Store struct {
	root string
}

// New returns a filesystem cache rooted at path. The directory must already
// exist: a missing cache root is an operator mistake this layer refuses to
// paper over by creating one.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("cache root not configured")
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cache root %s: %w", root, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("cache root %s is not a directory", root)
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// Ping re-checks that the root is still present and a directory.
func (s *Store) Ping(ctx context.Context) error {
	st, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("cache root %s: %w", s.root, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("cache root %s is not a directory", s.root)
	}
	return nil
}

// sanitizeHash keeps entries flat under the root: identity hashes are hex
// strings, anything path-like is rejected outright.
func sanitizeHash(hash string) (string, error) {
	if strings.TrimSpace(hash) == "" {
		return "", fmt.Errorf("empty hash")
	}
	for _, r := range hash {
		ok := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !ok {
			return "", fmt.Errorf("invalid hash %q", hash)
		}
	}
	return hash, nil
}

func (s *Store) pathFor(hash string) (dataPath, metaPath string, err error) {
	h, err := sanitizeHash(hash)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(s.root, h+".dat")
	metaPath = filepath.Join(s.root, h+".meta")
	return
}

type metaFile struct {
	Precision int       `json:"precision"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	WrittenAt time.Time `json:"written_at"`
}

func (s *Store) Save(ctx context.Context, hash string, precision int, payload []byte) (core.Entry, error) {
	dataPath, metaPath, err := s.pathFor(hash)
	if err != nil {
		return core.Entry{}, err
	}
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return core.Entry{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return core.Entry{}, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return core.Entry{}, err
	}
	if err := tmp.Close(); err != nil {
		return core.Entry{}, err
	}
	// Drop the old header first: from here until the new one is written the
	// entry reads as missing, never as the wrong precision.
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return core.Entry{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return core.Entry{}, err
	}
	sum := sha256.Sum256(payload)
	mf := metaFile{
		Precision: precision,
		Size:      int64(len(payload)),
		Checksum:  hex.EncodeToString(sum[:]),
		WrittenAt: time.Now().UTC(),
	}
	if err := writeMeta(s.root, metaPath, mf); err != nil {
		return core.Entry{}, err
	}
	return entryFrom(hash, mf), nil
}

func (s *Store) Load(ctx context.Context, hash string) (core.Entry, []byte, error) {
	dataPath, metaPath, err := s.pathFor(hash)
	if err != nil {
		return core.Entry{}, nil, err
	}
	mf, err := readMeta(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Entry{}, nil, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, nil, err
	}
	payload, err := os.ReadFile(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Entry{}, nil, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, nil, err
	}
	return entryFrom(hash, mf), payload, nil
}

func (s *Store) Head(ctx context.Context, hash string) (core.Entry, error) {
	_, metaPath, err := s.pathFor(hash)
	if err != nil {
		return core.Entry{}, err
	}
	mf, err := readMeta(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Entry{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, err
	}
	return entryFrom(hash, mf), nil
}

func (s *Store) Sufficient(ctx context.Context, hash string, target int) (bool, error) {
	e, err := s.Head(ctx, hash)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return core.Sufficient(e, target), nil
}

func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	dataPath, metaPath, err := s.pathFor(hash)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(metaPath); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	// Header before payload, mirroring Save: an interrupted delete must not
	// leave a header for a vanished payload.
	if err := os.Remove(metaPath); err != nil {
		return false, err
	}
	if err := os.Remove(dataPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context) ([]core.Entry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var entries []core.Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".meta") {
			continue
		}
		hash := strings.TrimSuffix(de.Name(), ".meta")
		mf, err := readMeta(filepath.Join(s.root, de.Name()))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entryFrom(hash, mf))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Hash < entries[j].Hash })
	return entries, nil
}

// --- helpers ---

func entryFrom(hash string, mf metaFile) core.Entry {
	return core.Entry{
		Hash:      hash,
		Precision: mf.Precision,
		Size:      mf.Size,
		Checksum:  mf.Checksum,
		WrittenAt: mf.WrittenAt,
	}
}

func writeMeta(root, path string, mf metaFile) error {
	b, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(root, ".tmp-meta-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return metaFile{}, err
	}
	var mf metaFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return metaFile{}, err
	}
	return mf, nil
}
