package service

import "errors"

// Sentinel errors for service operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrJobNotFound indicates the requested job ID is unknown.
	ErrJobNotFound = errors.New("job not found")

	// ErrSessionNotFound indicates the session does not exist or has
	// expired and been evicted.
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrSessionExists indicates a session ID collision on registration.
	ErrSessionExists = errors.New("session already exists")

	// ErrNotConfigured indicates the answer generator has no API
	// credential and queries cannot be served.
	ErrNotConfigured = errors.New("answer generation not configured")
)
