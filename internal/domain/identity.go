package domain

import "time"

// Identity is the authenticated owner of sessions and profile data.
type Identity struct {
	ID    string
	Email string
}

// AuthSession is the credential bundle returned by the authentication
// boundary. Backends without tokens leave the token fields empty.
type AuthSession struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         Identity
}

// Expired reports whether the access token is past (or within skew of) its expiry.
// Sessions without an expiry never expire.
func (a *AuthSession) Expired(now time.Time, skew time.Duration) bool {
	if a.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(a.ExpiresAt)
}
