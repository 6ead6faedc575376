package models

import "time"

// Session はログイン中のセッションです。トークンの jti がこの ID を指します。
type Session struct {
	ID        string     `json:"id"`
	UserID    int64      `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active は now の時点でセッションが有効かどうかを返します。
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// SessionClaims はトークンから取り出した値です。
type SessionClaims struct {
	UserID    int64
	SessionID string
}
