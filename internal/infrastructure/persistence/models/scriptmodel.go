package models

import "time"

// ScriptModel is the database persistence model for catalog scripts.
type ScriptModel struct {
	ID                 uint   `gorm:"primarykey"`
	SID                string `gorm:"column:sid;not null;size:32;uniqueIndex:idx_script_sid"`
	Name               string `gorm:"not null;size:120"`
	Slug               string `gorm:"not null;size:120;uniqueIndex:idx_script_slug"`
	TrialAvailable     bool   `gorm:"not null;default:false"`
	TrialDurationHours int    `gorm:"not null;default:0"`
	Active             bool   `gorm:"not null;default:true"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName specifies the table name for GORM
func (ScriptModel) TableName() string {
	return "scripts"
}
