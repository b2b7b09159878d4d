// Package logger provides structured logging for the application.
//
// It builds JSON log/slog loggers from the server configuration and carries
// request-scoped loggers through context.Context so that every log line
// written while serving a request includes its trace id.
package logger
