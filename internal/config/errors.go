package config

import "errors"

var (
	// ErrMissingDSN is returned when no database DSN is configured.
	ErrMissingDSN = errors.New("database.dsn is required")
	// ErrWeakSigningKey is returned when auth.signing_key is too short.
	ErrWeakSigningKey = errors.New("auth.signing_key is too short")
	// ErrInvalid wraps any other invalid setting.
	ErrInvalid = errors.New("invalid configuration")
)
