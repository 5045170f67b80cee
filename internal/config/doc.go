// Package config holds the boardwatch run configuration and the
// .boardwatch file with per-source overrides.
package config
