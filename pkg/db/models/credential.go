package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential is the auth side of an identity. It shares its primary key with
// the Profile row so the pair can never drift apart.
type Credential struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email        string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the legacy table name.
func (Credential) TableName() string {
	return "credentials"
}
