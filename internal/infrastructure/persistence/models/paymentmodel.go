package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentModel is the database persistence model for captured payments.
type PaymentModel struct {
	ID            uint   `gorm:"primarykey"`
	SID           string `gorm:"column:sid;not null;size:32;uniqueIndex:idx_payment_sid"`
	UserID        uint   `gorm:"not null;index:idx_payment_user"`
	LicenseID     uint   `gorm:"not null;index:idx_payment_license"`
	TransactionID string `gorm:"not null;size:128;uniqueIndex:idx_payment_txn"`
	AmountCents   int64  `gorm:"not null"`
	Currency      string `gorm:"not null;size:8"`
	Status        string `gorm:"not null;size:16;default:paid"`
	RefundedAt    *time.Time
	Metadata      datatypes.JSON
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int `gorm:"not null;default:1"`
}

// TableName specifies the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}
