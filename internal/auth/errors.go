package auth

import "errors"

var (
	// ErrMissingAPIKey is returned when the request carries no API key.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidAPIKey is returned when the API key resolves to no account.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrIdentityMismatch is returned when the claimed email does not match
	// the account bound to the API key.
	ErrIdentityMismatch = errors.New("email does not match API key account")
)
