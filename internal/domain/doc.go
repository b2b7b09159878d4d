// Package domain contains the core business entities of the study task service:
// tasks with a due time and a verification method, and the append-only
// verification attempts recorded against them. It also holds the state machine
// rules that decide how a task's state may change.
package domain
