// Package memory implements the artifact cache in process memory. It exists
// for tests and throwaway runs; nothing survives the process.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"siegelcore/internal/cache/core"
)

type record struct {
	entry   core.Entry
	payload []byte
}

// Store implements core.Store over a mutex-guarded map.
type Store struct {
	mu      sync.RWMutex
	records map[string]record
}

// New returns an empty in-memory cache.
func New() *Store {
	return &Store{records: make(map[string]record)}
}

func (s *Store) Driver() core.Driver { return core.DriverMemory }

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Save(ctx context.Context, hash string, precision int, payload []byte) (core.Entry, error) {
	sum := sha256.Sum256(payload)
	entry := core.Entry{
		Hash:      hash,
		Precision: precision,
		Size:      int64(len(payload)),
		Checksum:  hex.EncodeToString(sum[:]),
		WrittenAt: time.Now().UTC(),
	}
	cp := append([]byte(nil), payload...)
	s.mu.Lock()
	s.records[hash] = record{entry: entry, payload: cp}
	s.mu.Unlock()
	return entry, nil
}

func (s *Store) Load(ctx context.Context, hash string) (core.Entry, []byte, error) {
	s.mu.RLock()
	rec, ok := s.records[hash]
	s.mu.RUnlock()
	if !ok {
		return core.Entry{}, nil, core.ErrNotFound
	}
	return rec.entry, append([]byte(nil), rec.payload...), nil
}

func (s *Store) Head(ctx context.Context, hash string) (core.Entry, error) {
	s.mu.RLock()
	rec, ok := s.records[hash]
	s.mu.RUnlock()
	if !ok {
		return core.Entry{}, core.ErrNotFound
	}
	return rec.entry, nil
}

func (s *Store) Sufficient(ctx context.Context, hash string, target int) (bool, error) {
	s.mu.RLock()
	rec, ok := s.records[hash]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return core.Sufficient(rec.entry, target), nil
}

func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	s.mu.Lock()
	_, ok := s.records[hash]
	delete(s.records, hash)
	s.mu.Unlock()
	return ok, nil
}

func (s *Store) List(ctx context.Context) ([]core.Entry, error) {
	s.mu.RLock()
	entries := make([]core.Entry, 0, len(s.records))
	for _, rec := range s.records {
		entries = append(entries, rec.entry)
	}
	s.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Hash < entries[j].Hash })
	return entries, nil
}
