package model

import "time"

// ステータス変更履歴（追記のみ）。
type OrderStatusHistory struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64       `gorm:"not null;index" json:"order_id"`
	FromStatus  OrderStatus `gorm:"type:varchar(20);not null;default:''" json:"from_status"`
	ToStatus    OrderStatus `gorm:"type:varchar(20);not null" json:"to_status"`
	ActorUserID int64       `gorm:"not null" json:"actor_user_id"`
	ActorRole   Role        `gorm:"type:varchar(20);not null" json:"actor_role"`
	Note        string      `gorm:"type:text;not null;default:''" json:"note"`
	CreatedAt   time.Time   `gorm:"not null;index" json:"created_at"`
}

// 在庫戻しの記録。EventKeyで一意なので同じイベントで二重に戻さない。
type StockRestoration struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventKey  string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"event_key"`
	OrderID   int64     `gorm:"not null;index" json:"order_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
