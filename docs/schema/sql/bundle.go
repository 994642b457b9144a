// Package sqldocs exposes the artifact cache DDL bundles directly from the
// docs tree. The sqlite and postgres drivers execute these at open time, so
// the documented schema and the deployed schema cannot drift.
package sqldocs

import _ "embed"

// SQLite contains the artifact cache SQLite DDL bundle.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the artifact cache Postgres DDL bundle.
//
//go:embed postgres.sql
var Postgres string
