// Package service implements the task lifecycle: creating tasks, listing them
// after the lazy expiry sweep, and recording verification attempts.
//
// Every read-then-write sequence runs in one database transaction through
// store.RunInTransaction with transaction-bound stores.
package service
