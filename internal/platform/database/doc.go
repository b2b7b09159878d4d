// Package database opens the configured SQL engine and manages its schema
// with embedded goose migrations.
package database
