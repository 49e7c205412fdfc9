package repository

import (
	"context"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

type StoreRepository interface {
	Create(ctx context.Context, s model.Store) (model.Store, error)
	FindByID(ctx context.Context, storeID int64) (model.Store, error)
	ListByOwner(ctx context.Context, ownerUserID int64) ([]model.Store, error)
}

// 売上計上。
type EarningsRepository interface {
	// (order, store)で1回だけ計上し、ストアの完了件数と売上合計を増やす。
	// 既に計上済みならfalse。
	Credit(ctx context.Context, storeID int64, orderID int64, amount decimal.Decimal) (bool, error)
}
