package errors

import "errors"

// Credential errors.
var (
	ErrNoCredentials = errors.New("no client credentials configured")
	ErrNoToken       = errors.New("no cached token; run auth first")
)

// Profile and state errors.
var (
	ErrProfileNotFound = errors.New("sync profile not found")
	ErrNoLocalDir      = errors.New("no local directory configured")
)
