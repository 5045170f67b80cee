package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoSource is returned when no board URL is given.
	ErrNoSource = errors.New("no source specified: provide at least one board URL")

	// ErrInvalidSource is returned when a source is not an absolute http or https URL.
	ErrInvalidSource = errors.New("invalid source: must be an http or https URL")

	// ErrInvalidOnionAddress is returned when an onion source is not a valid
	// v3 address.
	ErrInvalidOnionAddress = errors.New("invalid onion address: must be a v3 address with a valid checksum")

	// ErrOnionWithoutProxy is returned when an onion source is given without
	// --tor or --proxy.
	ErrOnionWithoutProxy = errors.New("onion source needs Tor: use --tor or --proxy")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidChunkSize is returned when the fragment size cannot hold a
	// full UTF-8 encoding.
	ErrInvalidChunkSize = errors.New("invalid chunk size: must be at least 4 bytes")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingProxy is returned when --tor is combined with --proxy.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --tor and --proxy cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
