package models

import "errors"

// Application-wide standard errors
var (
	// Common resource/DB errors
	ErrNotFound = errors.New("resource not found")

	// Authentication/authorization
	ErrUnauthorized = errors.New("unauthorized") // authentication required or failed
	ErrForbidden    = errors.New("forbidden")    // authenticated, but lacks permission

	// Token errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// General request/server errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")

	// ErrInvariantViolation marks a detected data-integrity violation,
	// e.g. the turn ledger pointing at a non-participant. Never a
	// legitimate user-facing state; logged loudly and surfaced as a
	// generic server error.
	ErrInvariantViolation = errors.New("data integrity invariant violated")
)
