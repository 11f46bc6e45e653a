package models

import "time"

// LicenseModel is the database persistence model for licenses.
// This is the anti-corruption layer between domain and database.
//
// private_key carries a plain unique index: keys must stay unique across all
// licenses ever issued, revoked ones included. The per-subject "at most one
// non-revoked" invariant cannot be a plain index (revoked rows coexist), so
// it is enforced by a locked existence check inside the issuance transaction.
type LicenseModel struct {
	ID           uint   `gorm:"primarykey"`
	SID          string `gorm:"column:sid;not null;size:32;uniqueIndex:idx_license_sid"`
	UserID       uint   `gorm:"not null;index:idx_license_subject,priority:1"`
	ScriptID     uint   `gorm:"not null;index:idx_license_subject,priority:2"`
	PrivateKey   string `gorm:"not null;size:64;uniqueIndex:idx_license_private_key"`
	IsTrial      bool   `gorm:"not null;default:false"`
	IsActive     bool   `gorm:"not null;default:true"`
	IsRevoked    bool   `gorm:"not null;default:false;index:idx_license_subject,priority:3"`
	RevokeReason string `gorm:"size:32"`
	ExpiresAt    *time.Time
	LastUsedIP   string `gorm:"size:45"` // fits IPv6 text form
	LastUsedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int `gorm:"not null;default:1"`
}

// TableName specifies the table name for GORM
func (LicenseModel) TableName() string {
	return "licenses"
}
