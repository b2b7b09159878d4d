// Package store defines the persistence contracts for tasks and verification
// attempts. Implementations live under internal/platform; services combine
// store calls inside RunInTransaction so each operation commits fully or not
// at all.
package store
