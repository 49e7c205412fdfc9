package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 明細は注文作成時に一度だけ書き、以後は読むだけ。
type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// 一覧表示用。明細の無い注文はキーが無い。
	ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error)
}
