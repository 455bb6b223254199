package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/amorize/checkout-backend/pkg/enums"
)

// AuditLogEntry is an append-only record of a payment-relevant event. LogHash
// is a SHA-256 digest over the semantic fields so tampering is detectable;
// entries are never updated once written.
type AuditLogEntry struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Level         enums.AuditLevel `gorm:"column:level;not null;index"`
	Context       string           `gorm:"column:context;not null"`
	Message       string           `gorm:"column:message;not null"`
	Metadata      json.RawMessage  `gorm:"column:metadata;type:jsonb"`
	CorrelationID string           `gorm:"column:correlation_id;not null;index"`
	UserID        *uuid.UUID       `gorm:"column:user_id;type:uuid;index"`
	OrderID       *uuid.UUID       `gorm:"column:order_id;type:uuid;index"`
	PaymentID     *string          `gorm:"column:payment_id;index"`
	CustomerEmail *string          `gorm:"column:customer_email"`
	IPAddress     *string          `gorm:"column:ip_address"`
	UserAgent     *string          `gorm:"column:user_agent"`
	LogHash       string           `gorm:"column:log_hash;not null"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the legacy table name.
func (AuditLogEntry) TableName() string {
	return "audit_logs"
}
