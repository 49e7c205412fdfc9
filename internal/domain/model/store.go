package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 出品者のストア。1人の出品者が複数持てる。
type Store struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerUserID     int64           `gorm:"not null;index" json:"owner_user_id"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	CompletedOrders int64           `gorm:"not null;default:0" json:"completed_orders"`
	TotalEarnings   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_earnings"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 売上計上の記録。(order_id, store_id)で一意なので同じ注文で二重計上しない。
type EarningCredit struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"not null;uniqueIndex:idx_earning_credit_order_store" json:"order_id"`
	StoreID   int64           `gorm:"not null;uniqueIndex:idx_earning_credit_order_store" json:"store_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
