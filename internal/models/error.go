package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// Authentication flow errors
	ErrSessionExpired   = errors.New("session expired")
	ErrLoginBlocked     = errors.New("login blocked by risk policy")
	ErrMFAInvalidCode   = errors.New("invalid or expired MFA code")
	ErrMissingHandoff   = errors.New("missing hand-off state")
	ErrMalformedPayload = errors.New("malformed server payload")
)
