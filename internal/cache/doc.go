// Package cache implements the filesystem-backed artifact cache shared by all
// pipeline stages. Artifacts are content-addressed (see hashutil), so a cache
// check is a plain existence test and writers never overwrite a live path.
// Stale cleanup is prefix-scoped and best-effort: an orphaned file wastes disk
// space but never breaks a build.
package cache
