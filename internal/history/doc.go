// Package history persists dispatched commands and their outcomes, plus
// named connection profiles, in a local SQLite database. The store is a
// passive audit surface: the reconciliation core never reads from it.
package history
