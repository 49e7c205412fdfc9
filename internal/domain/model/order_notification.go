package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// 通知だけに使うイベント（状態遷移表には無い）
	EventCheckout OrderEvent = "checkout"
	EventPaid     OrderEvent = "paid"
)

// OrderNotification は注文の状態が変わったときに外へ流す通知。
type OrderNotification struct {
	EventID     string          `json:"event_id"`
	Event       OrderEvent      `json:"event"`
	OrderID     int64           `json:"order_id"`
	CustomerID  int64           `json:"customer_id"`
	StoreIDs    []int64         `json:"store_ids"`
	From        OrderStatus     `json:"from,omitempty"`
	To          OrderStatus     `json:"to"`
	Payment     PaymentStatus   `json:"payment_status"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	ActorUserID int64           `json:"actor_user_id"`
	ActorRole   Role            `json:"actor_role"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
