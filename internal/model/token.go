package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table.  Token holds
// the opaque value handed to the client and is only populated right after
// issuance; storage keeps TokenHash.  AccessTokenHash binds the record to the
// access token minted in the same pair.
type RefreshToken struct {
	ID              ID
	UserID          ID
	Token           string
	TokenHash       string
	AccessTokenHash string
	ExpiresAt       time.Time
	CreatedAt       time.Time
	Used            bool
	Invalidated     bool
}

// Usable reports whether the token can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Invalidated && !t.Used && now.Before(t.ExpiresAt)
}
