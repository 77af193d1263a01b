// Package common defines shared sentinel errors used across the storage,
// service and HTTP layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrorUnavailable marks a storage failure that survived the single
	// read-path retry. The underlying cause is wrapped alongside it.
	ErrorUnavailable = errors.New("storage unavailable")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
