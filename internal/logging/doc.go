// Package logging assembles the structured slog loggers used by the CLI and
// the API server.
//
// Console output is one line per record with key=value fields; when a log
// directory is configured every record is also appended as JSON to
// reelmatch.log. Context helpers tag lines with the API request ID, and
// NewNop gives tests and optional wiring a logger that cannot fail.
package logging
