package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/pkg/enums"
)

// Order is immutable after creation except for Status and AsaasPaymentID.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	ProductIDs     pq.StringArray    `gorm:"column:ordered_product_ids;type:text[];not null"`
	TotalPrice     decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status         enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	CouponCode     *string           `gorm:"column:coupon_code"`
	AsaasPaymentID *string           `gorm:"column:asaas_payment_id;index"`
	Tracking       json.RawMessage   `gorm:"column:tracking;type:jsonb"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the legacy table name.
func (Order) TableName() string {
	return "orders"
}
