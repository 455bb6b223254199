package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/pkg/enums"
)

// Coupon applies at most once per order. Codes are stored uppercase.
// Active carries no gorm default tag: gorm skips zero-value fields that have
// one on insert, which would silently persist a disabled coupon as active.
type Coupon struct {
	Code         string             `gorm:"column:code;type:text;primaryKey"`
	DiscountType enums.DiscountType `gorm:"column:discount_type;not null"`
	Value        decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	Active       bool               `gorm:"column:active;not null"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the legacy table name.
func (Coupon) TableName() string {
	return "coupons"
}
