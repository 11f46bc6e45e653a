package models

import "time"

// SessionModel stores issued refresh tokens (hashed) for session teardown and
// rotation. The plaintext refresh token never touches the database.
type SessionModel struct {
	ID               uint   `gorm:"primarykey"`
	UserID           uint   `gorm:"not null;index:idx_session_user"`
	RefreshTokenHash string `gorm:"not null;size:128;index:idx_session_hash"`
	ExpiresAt        time.Time
	RevokedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName specifies the table name for GORM
func (SessionModel) TableName() string {
	return "sessions"
}
