package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

// 支払い状態。ステータスとは独立（キャンセル後は変更不可）。
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "Cash on Delivery"
	PaymentCashOnPickup   PaymentMethod = "Cash on Pickup"
	PaymentGCash          PaymentMethod = "GCash"
	PaymentGCashManual    PaymentMethod = "GCash Manual"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentCashOnPickup, PaymentGCash, PaymentGCashManual:
		return true
	}
	return false
}

// Prepaid は前払い（確認待ちになる）支払い方法か。
func (m PaymentMethod) Prepaid() bool {
	return m == PaymentGCash || m == PaymentGCashManual
}

// Cash は受け渡し時に現金回収する支払い方法か。
func (m PaymentMethod) Cash() bool {
	return m == PaymentCashOnDelivery || m == PaymentCashOnPickup
}

type Order struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID int64  `gorm:"not null;index;uniqueIndex:idx_order_idempotency" json:"customer_id"`
	CartID     *int64 `gorm:"index" json:"cart_id,omitempty"`

	Status        OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null" json:"payment_status"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(50);not null;default:''" json:"payment_method"`

	CustomerName     string `gorm:"type:varchar(255);not null;default:''" json:"customer_name"`
	ContactNumber    string `gorm:"type:varchar(50);not null;default:''" json:"contact_number"`
	DeliveryLocation string `gorm:"type:text;not null;default:''" json:"delivery_location"`
	Notes            string `gorm:"type:text;not null;default:''" json:"notes"`

	TotalAmount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	ShippingFee      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shipping_fee"`
	EstimatedMinutes int             `gorm:"not null;default:0" json:"estimated_minutes"`

	IdempotencyKey string `gorm:"type:varchar(255);not null;uniqueIndex:idx_order_idempotency" json:"-"`

	PlacedAt    *time.Time `json:"placed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CanceledAt  *time.Time `json:"canceled_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// GrandTotal は商品合計＋送料。
func (o Order) GrandTotal() decimal.Decimal {
	return o.TotalAmount.Add(o.ShippingFee)
}

// StoreIDs は明細に含まれるストア（重複なし、出現順）。
func (o Order) StoreIDs() []int64 {
	seen := map[int64]bool{}
	out := []int64{}
	for _, it := range o.Items {
		if seen[it.StoreID] {
			continue
		}
		seen[it.StoreID] = true
		out = append(out, it.StoreID)
	}
	return out
}

// ContainsAnyStore はstoreIDsのどれかの商品を含むか。
func (o Order) ContainsAnyStore(storeIDs []int64) bool {
	for _, it := range o.Items {
		for _, id := range storeIDs {
			if it.StoreID == id {
				return true
			}
		}
	}
	return false
}

// SubtotalByStore はストアごとの明細小計。
func (o Order) SubtotalByStore() map[int64]decimal.Decimal {
	out := map[int64]decimal.Decimal{}
	for _, it := range o.Items {
		out[it.StoreID] = out[it.StoreID].Add(it.Subtotal)
	}
	return out
}

// 注文確定時に入力する配送情報。
type Placement struct {
	CustomerName     string
	ContactNumber    string
	DeliveryLocation string
	PaymentMethod    PaymentMethod
	Notes            string
	PaymentStatus    PaymentStatus
}
