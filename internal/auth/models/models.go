package models

import "time"

// SessionUser represents the signed-in user as reported by the identity provider
type SessionUser struct {
	Username string
	// Email is empty when the provider does not know it
	Email  string
	UserID string
}

// Tokens is the persisted provider session
type Tokens struct {
	AccessToken  string    `yaml:"access_token"`
	IDToken      string    `yaml:"id_token"`
	RefreshToken string    `yaml:"refresh_token,omitempty"`
	ExpiresAt    time.Time `yaml:"expires_at"`
	// LoginID is the identifier the user typed when signing in
	LoginID string `yaml:"login_id"`
}

// Expired reports whether the tokens are expired at now, allowing for skew
func (t *Tokens) Expired(now time.Time, skew time.Duration) bool {
	return !now.Add(skew).Before(t.ExpiresAt)
}
