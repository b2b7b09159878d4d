// Package api provides the HTTP handlers for the task lifecycle endpoints.
//
// Handlers decode and validate requests, call service.TaskService and map
// errors to status codes through HandleAPIError. Timestamps are exchanged as
// ISO-8601 UTC strings ending in "Z".
package api
