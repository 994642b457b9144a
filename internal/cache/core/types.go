// Package core defines the abstractions shared by the artifact cache backends
// used by the execution engine.
package core

import (
	"context"
	"errors"
	"time"
)

// Driver identifies a concrete cache backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverSQLite represents the embedded sqlite implementation.
	DriverSQLite Driver = "sqlite" // embedded single-file database
	// DriverPostgres represents the PostgreSQL implementation.
	DriverPostgres Driver = "postgres" // shared server-backed database
)

// Entry describes one cached artifact: the identity hash it is stored under
// and the header fields consulted without touching the payload. Precision is
// the contract: an entry claiming precision P serves any request up to P.
type Entry struct {
	Hash      string    `json:"hash"`
	Precision int       `json:"precision"`
	Size      int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum,omitempty"`
	WrittenAt time.Time `json:"written_at"`
}

// Store is the durable artifact cache addressed by identity hash. At most one
// live entry exists per hash; Save replaces unconditionally. Implementations
// must never let a crash leave a header claiming more precision than the
// payload actually carries: a torn write degrades to a miss.
type Store interface {
	// Save writes payload under hash with the given precision header,
	// replacing any previous entry.
	Save(ctx context.Context, hash string, precision int, payload []byte) (Entry, error)
	// Load returns the entry and payload for hash, or ErrNotFound.
	Load(ctx context.Context, hash string) (Entry, []byte, error)
	// Head returns the entry header without reading the payload, or
	// ErrNotFound.
	Head(ctx context.Context, hash string) (Entry, error)
	// Sufficient reports whether a live entry for hash carries at least
	// target precision. A missing entry is (false, nil), not an error.
	Sufficient(ctx context.Context, hash string, target int) (bool, error)
	// Delete removes the entry for hash, reporting whether one existed.
	Delete(ctx context.Context, hash string) (bool, error)
	// List returns the headers of every live entry, ordered by hash.
	List(ctx context.Context) ([]Entry, error)
	// Ping verifies the backend is reachable and writable enough to serve a
	// run.
	Ping(ctx context.Context) error
	Driver() Driver
}

// ErrNotFound is returned when no live entry exists for a hash.
var ErrNotFound = errors.New("cachestore: entry not found")

// Sufficient is the header-only precision check shared by backends that
// already have an Entry at hand.
func Sufficient(e Entry, target int) bool {
	return e.Precision >= target
}
