package model

import "time"

// Session stores one issued token. Sessions are deactivated, never deleted, so
// they remain available for audit.
type Session struct {
	SessionID string    `json:"session_id" gorm:"column:session_id;type:char(36);primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Token     string    `json:"-" gorm:"size:512;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true;index"`

	// Relations
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// ValidAt reports whether the session authenticates requests at now.
func (s *Session) ValidAt(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
