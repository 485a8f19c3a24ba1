// Package config loads, normalizes, and validates bindery configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the BINDERY_SERVICE_URL
// environment fallback. The Config type centralizes every knob the CLI needs:
// where the conversion service lives, where results land, which files intake
// accepts, and how logs are written.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
