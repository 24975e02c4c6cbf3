package sessions

import "time"

// Session is a refresh-token session for an admin.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	Username     string    `bson:"username" json:"username"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
