package auth

import (
	"time"
)

// DefaultExpiresIn is the access token lifetime Exact Online hands out
// when the token endpoint omits expires_in (10 minutes).
const DefaultExpiresIn = 600

// RefreshMargin is the safety buffer before actual expiry at which the
// access token is considered stale and refreshed proactively.
const RefreshMargin = 30 * time.Second

// Token is the OAuth2 token pair for API authentication.
//
// The refresh token is single-use: every refresh exchange returns a new one
// and invalidates the old one, so a refreshed Token must be persisted before
// it is used.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ObtainedAt   time.Time `json:"obtained_at"`
	ExpiresIn    int       `json:"expires_in"`
}

// IsExpired reports whether the access token is expired or will expire
// within RefreshMargin.
func (t *Token) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsExpiredAt is IsExpired evaluated against an explicit clock.
func (t *Token) IsExpiredAt(now time.Time) bool {
	expiresIn := t.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}
	age := now.Sub(t.ObtainedAt)
	return age >= time.Duration(expiresIn)*time.Second-RefreshMargin
}
