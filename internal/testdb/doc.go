// Package testdb provides migrated databases for tests.
//
// SQLite databases live in t.TempDir() and need no external services.
// PostgreSQL databases are started in a container by testcontainers-go and
// are only available under the integration build tag.
package testdb
