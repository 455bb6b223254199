package catalog

import "github.com/shopspring/decimal"

// UpsertProductInput creates or replaces a catalog product.
type UpsertProductInput struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	Status        string
	IsKit         bool
	KitProductIDs []string
}

// CreateCouponInput registers a new discount coupon.
type CreateCouponInput struct {
	Code         string
	DiscountType string
	Value        decimal.Decimal
	Active       bool
}
