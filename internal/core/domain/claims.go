package domain

import "time"

// TokenUse tags a signed token with the profile it was issued under.
type TokenUse string

const (
	TokenUseAccess  TokenUse = "access"
	TokenUseRefresh TokenUse = "refresh"
)

// AccessClaims are carried by short-lived access tokens.
type AccessClaims struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// RefreshClaims are carried by long-lived refresh tokens. They identify the
// subject only.
type RefreshClaims struct {
	UserID    string
	ExpiresAt time.Time
}
