// Package logging wraps log/slog with cardcast's handler setup and attribute
// helpers. The console handler targets humans running the CLI; the JSON
// handler targets log collection.
package logging
