// Package config loads, normalizes, and validates skupix configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SKUPIX_LOG_LEVEL. The Config type centralizes every knob the CLI and the
// image pipeline need so working, log, and output directories are discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, parsed colours, and clear
// validation errors.
package config
