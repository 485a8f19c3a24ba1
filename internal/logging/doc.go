// Package logging builds the slog loggers used by bindery.
//
// Two handlers are available: a single-line console format for terminals
// and JSON for log files or machine consumption. Queue item ids, stages and
// request correlation ids stored on a context can be attached with
// WithContext so every line about one file can be found with a single grep.
package logging
