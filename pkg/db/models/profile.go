package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Profile is the customer-facing identity record. Its ID is shared with the
// auth credential row; exactly one profile exists per credential.
type Profile struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name               string         `gorm:"column:name;not null"`
	Email              string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	CPF                string         `gorm:"column:cpf;not null"`
	Whatsapp           string         `gorm:"column:whatsapp"`
	Access             pq.StringArray `gorm:"column:access;type:text[];not null;default:ARRAY[]::text[]"`
	FirstAccess        bool           `gorm:"column:primeiro_acesso;not null;default:true"`
	HasChangedPassword bool           `gorm:"column:has_changed_password;not null;default:false"`
	IsAdmin            bool           `gorm:"column:is_admin;not null;default:false"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the legacy table name.
func (Profile) TableName() string {
	return "profiles"
}

// HasAccessTo reports whether the profile can already reach every product id in ids.
func (p Profile) HasAccessTo(ids []string) bool {
	owned := make(map[string]struct{}, len(p.Access))
	for _, id := range p.Access {
		owned[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := owned[id]; !ok {
			return false
		}
	}
	return true
}
