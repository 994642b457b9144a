// Package sqlite implements the artifact cache on an embedded single-file
// database. One row per entry; the row is the atomic unit, so a replaced
// entry is never observable half-written.
package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	sqldocs "siegelcore/docs/schema/sql"
	"siegelcore/internal/cache/core"
)

// Store implements core.Store over a sqlite database file.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the database at path and ensures the entry
// table exists.
func New(path string) (*Store, error) {
	if path == "" {
		path = "siegelcache.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqldocs.SQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create entry table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverSQLite }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func (s *Store) Save(ctx context.Context, hash string, precision int, payload []byte) (core.Entry, error) {
	sum := sha256.Sum256(payload)
	entry := core.Entry{
		Hash:      hash,
		Precision: precision,
		Size:      int64(len(payload)),
		Checksum:  hex.EncodeToString(sum[:]),
		WrittenAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries(hash,prec,size,checksum,written_at,payload) VALUES(?,?,?,?,?,?)
		 ON CONFLICT(hash) DO UPDATE SET prec=excluded.prec, size=excluded.size,
		 checksum=excluded.checksum, written_at=excluded.written_at, payload=excluded.payload`,
		hash, entry.Precision, entry.Size, entry.Checksum, entry.WrittenAt.Format(time.RFC3339Nano), payload)
	if err != nil {
		return core.Entry{}, fmt.Errorf("upsert %s: %w", hash, err)
	}
	return entry, nil
}

func (s *Store) Load(ctx context.Context, hash string) (core.Entry, []byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT prec, size, checksum, written_at, payload FROM cache_entries WHERE hash = ?`, hash)
	var (
		entry     core.Entry
		writtenAt string
		payload   []byte
	)
	entry.Hash = hash
	err := row.Scan(&entry.Precision, &entry.Size, &entry.Checksum, &writtenAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, nil, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, nil, fmt.Errorf("select %s: %w", hash, err)
	}
	if entry.WrittenAt, err = time.Parse(time.RFC3339Nano, writtenAt); err != nil {
		return core.Entry{}, nil, fmt.Errorf("parse written_at: %w", err)
	}
	return entry, payload, nil
}

func (s *Store) Head(ctx context.Context, hash string) (core.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT prec, size, checksum, written_at FROM cache_entries WHERE hash = ?`, hash)
	var (
		entry     core.Entry
		writtenAt string
	)
	entry.Hash = hash
	err := row.Scan(&entry.Precision, &entry.Size, &entry.Checksum, &writtenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("select %s: %w", hash, err)
	}
	if entry.WrittenAt, err = time.Parse(time.RFC3339Nano, writtenAt); err != nil {
		return core.Entry{}, fmt.Errorf("parse written_at: %w", err)
	}
	return entry, nil
}

func (s *Store) Sufficient(ctx context.Context, hash string, target int) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT prec FROM cache_entries WHERE hash = ?`, hash)
	var prec int
	err := row.Scan(&prec)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select %s: %w", hash, err)
	}
	return prec >= target, nil
}

func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE hash = ?`, hash)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) List(ctx context.Context) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash, prec, size, checksum, written_at FROM cache_entries ORDER BY hash`)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var entries []core.Entry
	for rows.Next() {
		var (
			entry     core.Entry
			writtenAt string
		)
		if err := rows.Scan(&entry.Hash, &entry.Precision, &entry.Size, &entry.Checksum, &writtenAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if entry.WrittenAt, err = time.Parse(time.RFC3339Nano, writtenAt); err != nil {
			return nil, fmt.Errorf("parse written_at: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
