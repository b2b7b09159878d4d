// Package sqlstore implements the store interfaces on database/sql.
//
// The same stores serve SQLite (mattn/go-sqlite3) and PostgreSQL
// (jackc/pgx/v5/stdlib). Queries are written with ? placeholders and rebound
// for the active Dialect; timestamps are bound in a form each engine compares
// correctly.
package sqlstore
