// Package logging builds the slog loggers used across the controller: a
// human-oriented console handler for interactive terminals and a JSON handler
// for everything else, plus attr helpers so call sites stay terse.
package logging
