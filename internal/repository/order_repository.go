package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type OrderListFilter struct {
	Page       int
	Limit      int
	Status     string
	CustomerID *int64
	// StoreIDs が空でなければ、そのストアの明細を含む注文だけ
	StoreIDs []int64
}

// 状態遷移で一緒に書き込む項目。
type StatusChange struct {
	From []model.OrderStatus
	To   model.OrderStatus
	At   time.Time
	// Pending→Placed のときだけ
	Placement *model.Placement
	// 支払い状態も変える場合（配達時の現金回収など）
	PaymentStatus *model.PaymentStatus
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, customerID int64, key string) (model.Order, bool, error)

	// 現在の状態がFromのどれかのときだけ更新する（CAS）。更新できなければfalse。
	TransitionStatus(ctx context.Context, orderID int64, ch StatusChange) (bool, error)
	// キャンセル済み以外の支払い状態を更新。更新できなければfalse。
	UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) (bool, error)

	ListPendingByCart(ctx context.Context, cartID int64) ([]model.Order, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error)
	// 未完了の注文から参照されている商品か
	ExistsOpenWithProduct(ctx context.Context, productID int64) (bool, error)

	AppendHistory(ctx context.Context, h model.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error)
}
