package auth

import "time"

// Account is the slice of a user record that authentication cares about.
type Account struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	RoleID       int64
	IsActive     bool
}

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
