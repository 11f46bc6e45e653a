package models

import "time"

// UserModel is the database persistence model for account holders.
// The IP binding lives here, not on the license: one registered address
// covers all of a user's licenses.
type UserModel struct {
	ID                uint   `gorm:"primarykey"`
	SID               string `gorm:"column:sid;not null;size:32;uniqueIndex:idx_user_sid"`
	Email             string `gorm:"not null;size:255;uniqueIndex:idx_user_email"`
	BoundIP           string `gorm:"size:45"`
	BoundAt           *time.Time
	TrialWindowEndsAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName specifies the table name for GORM
func (UserModel) TableName() string {
	return "users"
}
