package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カートの明細。(cart_id, product_id, selection_key)で一意。
// UnitPriceSnapshotは追加時点の価格（表示用）。合計は毎回カタログから再計算する。
type CartItem struct {
	ID                int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID            int64            `gorm:"not null;uniqueIndex:idx_cart_line" json:"cart_id"`
	ProductID         int64            `gorm:"not null;uniqueIndex:idx_cart_line" json:"product_id"`
	SelectionKey      string           `gorm:"type:varchar(255);not null;default:'';uniqueIndex:idx_cart_line" json:"selection_key"`
	Selection         VariantSelection `gorm:"type:jsonb" json:"selection"`
	Quantity          int64            `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot decimal.Decimal  `gorm:"type:numeric(12,2);not null;column:unit_price_snapshot" json:"unit_price_snapshot"`
	CreatedAt         time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
