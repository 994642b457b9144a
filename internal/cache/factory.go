package cache

import (
	"context"
	"fmt"
	"os"

	fsstore "siegelcore/internal/infra/cache/fs"
	memorystore "siegelcore/internal/infra/cache/memory"
	postgresstore "siegelcore/internal/infra/cache/postgres"
	s3store "siegelcore/internal/infra/cache/s3"
	sqlitestore "siegelcore/internal/infra/cache/sqlite"
)

// Open selects a cache.Store implementation using environment variables.
//
//	SIEGELCORE_CACHE_DRIVER: fs|memory|s3|sqlite|postgres (default fs)
//	SIEGELCORE_CACHE_FS_ROOT: directory root when driver=fs (default ./cachedata)
//	SIEGELCORE_CACHE_SQLITE_PATH: database file when driver=sqlite
//	SIEGELCORE_CACHE_POSTGRES_DSN: connection string when driver=postgres
//	(S3 specific variables documented in the s3 driver)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("SIEGELCORE_CACHE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("SIEGELCORE_CACHE_FS_ROOT")
		if root == "" {
			root = "./cachedata"
		}
		return NewFilesystem(root)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return s3store.OpenFromEnv(ctx)
	case DriverSQLite:
		return NewSQLite(os.Getenv("SIEGELCORE_CACHE_SQLITE_PATH"))
	case DriverPostgres:
		return NewPostgres(ctx, os.Getenv("SIEGELCORE_CACHE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown cache driver %s", driver)
	}
}

// NewFilesystem returns a filesystem-backed Store rooted at an existing
// directory.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewSQLite returns a Store backed by an embedded database file.
func NewSQLite(path string) (Store, error) { return sqlitestore.New(path) }

// NewPostgres returns a Store backed by a PostgreSQL server.
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	return postgresstore.New(ctx, dsn)
}

// NewS3 returns a Store backed by an S3-compatible bucket.
func NewS3(ctx context.Context, cfg s3store.Config) (Store, error) {
	return s3store.New(ctx, cfg)
}

// NewMockS3ForTests returns an S3 Store talking to an in-memory fake
// transport, so integration tests cover the S3 code path offline.
func NewMockS3ForTests() Store { return s3store.NewMockForTests() }
