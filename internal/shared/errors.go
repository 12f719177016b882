package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid occurs when an access or refresh token fails verification.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired occurs when a token is past its validity window.
	ErrTokenExpired = errors.New("token expired")
)
