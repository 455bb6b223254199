package orders

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/pkg/db/models"
)

// CreateOrderInput carries the fields for a new pending order.
type CreateOrderInput struct {
	UserID     uuid.UUID
	ProductIDs []string
	TotalPrice decimal.Decimal
	CouponCode *string
	Tracking   json.RawMessage
}

// CouponResult reports the discounted total and the coupon that produced it.
// Coupon is nil when no code was supplied.
type CouponResult struct {
	FinalTotal decimal.Decimal
	Coupon     *models.Coupon
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	CustomerEmail string
	Status        string
	Limit         int
	Offset        int
}
