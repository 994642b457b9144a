// Package postgres implements the artifact cache on a PostgreSQL server so
// several hosts can share one set of computed tables.
package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	sqldocs "siegelcore/docs/schema/sql"
	"siegelcore/internal/cache/core"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/siegelcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the database opener for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driver, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

// Store implements core.Store over a PostgreSQL connection pool.
type Store struct {
	db *sql.DB
}

// New connects using the given DSN (falling back to a local default), pings
// the server and ensures the entry table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqldocs.Postgres); err != nil {
		return nil, fmt.Errorf("create entry table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverPostgres }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying pool for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

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
		`INSERT INTO cache_entries(hash,prec,size,checksum,written_at,payload) VALUES($1,$2,$3,$4,$5,$6)
		 ON CONFLICT(hash) DO UPDATE SET prec=excluded.prec, size=excluded.size,
		 checksum=excluded.checksum, written_at=excluded.written_at, payload=excluded.payload`,
		hash, entry.Precision, entry.Size, entry.Checksum, entry.WrittenAt, payload)
	if err != nil {
		return core.Entry{}, fmt.Errorf("upsert %s: %w", hash, err)
	}
	return entry, nil
}

func (s *Store) Load(ctx context.Context, hash string) (core.Entry, []byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT prec, size, checksum, written_at, payload FROM cache_entries WHERE hash = $1`, hash)
	var (
		entry   core.Entry
		payload []byte
	)
	entry.Hash = hash
	err := row.Scan(&entry.Precision, &entry.Size, &entry.Checksum, &entry.WrittenAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, nil, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, nil, fmt.Errorf("select %s: %w", hash, err)
	}
	return entry, payload, nil
}

func (s *Store) Head(ctx context.Context, hash string) (core.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT prec, size, checksum, written_at FROM cache_entries WHERE hash = $1`, hash)
	var entry core.Entry
	entry.Hash = hash
	err := row.Scan(&entry.Precision, &entry.Size, &entry.Checksum, &entry.WrittenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("select %s: %w", hash, err)
	}
	return entry, nil
}

func (s *Store) Sufficient(ctx context.Context, hash string, target int) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT prec FROM cache_entries WHERE hash = $1`, hash)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE hash = $1`, hash)
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
		var entry core.Entry
		if err := rows.Scan(&entry.Hash, &entry.Precision, &entry.Size, &entry.Checksum, &entry.WrittenAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
