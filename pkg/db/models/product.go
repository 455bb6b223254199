package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/amorize/checkout-backend/pkg/enums"
)

// Product is a purchasable digital product. IDs are human-readable slugs
// managed by the admin panel, not generated UUIDs.
type Product struct {
	ID            string              `gorm:"column:id;type:text;primaryKey"`
	Name          string              `gorm:"column:name;not null"`
	Price         decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Status        enums.ProductStatus `gorm:"column:status;not null;default:'ativo'"`
	IsKit         bool                `gorm:"column:is_kit;not null;default:false"`
	KitProductIDs pq.StringArray      `gorm:"column:kit_product_ids;type:text[]"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the legacy table name.
func (Product) TableName() string {
	return "products"
}
