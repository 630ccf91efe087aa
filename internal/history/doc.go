// Package history persists a ledger of completed generation runs backed by
// SQLite. Each run records what was built versus served from cache so users
// can audit cache behavior across invocations.
package history
