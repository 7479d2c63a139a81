package gormstore

import "time"

const currentSessionSlot = "current"

// StoredSession mirrors the client_sessions table. The client keeps at most
// one row, addressed by Slot.
type StoredSession struct {
	Slot        string    `gorm:"primaryKey"`
	UserID      string    `gorm:"not null"`
	DisplayName string    `gorm:"not null"`
	Credential  string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (StoredSession) TableName() string { return "client_sessions" }
