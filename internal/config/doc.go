// Package config defines cardcast's TOML configuration surface and the
// layering rules on top of it: built-in defaults, then the config file, then
// per-deck overrides, then CLI flags.
package config
