package core

import "time"

// Challenge is a single-use nonce issued to one wallet address by the auth API
type Challenge struct {
	ID        string    // Unique identifier, consumed on verify
	Address   string    // Wallet address the challenge is scoped to
	Nonce     string    // Random nonce embedded in the signed message
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Session is an access grant issued by the auth API after a successful verify
type Session struct {
	ID        string
	Address   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenInfo is what a client can read from a bearer token without verifying it
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time // Zero when the token carries no expiry
}

// Expired reports whether the token carries an expiry that lies before now.
func (t *TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
