// Package config loads, normalizes, and validates optipress configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// daemon and CLI need: library and staging directories, converter binaries and
// qualities, and the batch processor's tick interval and per-tick budgets.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
