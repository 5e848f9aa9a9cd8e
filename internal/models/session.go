package models

import "time"

// Session is a login session persisted in Redis under its token.
type Session struct {
	Token     string    `json:"token"`
	NRIC      string    `json:"nric"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at the given
// instant.
func (s *Session) Expired(asOf time.Time) bool {
	return asOf.After(s.ExpiresAt)
}
