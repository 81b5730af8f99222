// Package config loads, normalizes, and validates gitreel configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as GITHUB_TOKEN and
// GITREEL_API_TOKEN. The Config type centralizes every knob the daemon and CLI
// need so output, temp, and audio directories plus external tool names are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
