// Package cache re-exports the artifact cache abstractions and selects
// backends. The execution engine depends on cache.Store only; concrete
// drivers live under internal/infra/cache and are wrapped here.
package cache

import (
	"siegelcore/internal/cache/core"
)

type (
	// Driver identifies a cache backend driver.
	Driver = core.Driver
	// Entry describes a cached artifact header.
	Entry = core.Entry
	// Store is the interface for artifact cache backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverSQLite is the embedded database driver.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the shared server driver.
	DriverPostgres = core.DriverPostgres
)

// ErrNotFound indicates no live entry exists for a hash.
var ErrNotFound = core.ErrNotFound
