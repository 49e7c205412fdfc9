package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。作成後は変更しない（価格は購入時点で固定）。
type OrderItem struct {
	ID                  int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64            `gorm:"not null;index" json:"order_id"`
	ProductID           int64            `gorm:"not null;index" json:"product_id"`
	StoreID             int64            `gorm:"not null;index" json:"store_id"`
	ProductNameSnapshot string           `gorm:"type:varchar(255);not null" json:"product_name"`
	Selection           VariantSelection `gorm:"type:jsonb" json:"selection"`
	SelectionLabel      string           `gorm:"type:varchar(500);not null;default:''" json:"selection_label"`
	Quantity            int64            `gorm:"not null" json:"quantity"`
	PriceAtPurchase     decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price_at_purchase"`
	Subtotal            decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	CreatedAt           time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
}
