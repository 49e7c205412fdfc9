package repository

import (
	"context"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

// カート明細は(cart, product, selection key)で特定する。
type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindLine(ctx context.Context, cartID int64, productID int64, selectionKey string) (model.CartItem, error)
	// 同じ明細があれば数量をプラス、なければ追加
	UpsertLine(ctx context.Context, cartID int64, productID int64, sel model.VariantSelection, addQty int64, unitPriceSnapshot decimal.Decimal) error
	// 明細がなければfalse
	SetLineQuantity(ctx context.Context, cartID int64, productID int64, selectionKey string, qty int64) (bool, error)
	// 無くてもエラーにしない
	DeleteLine(ctx context.Context, cartID int64, productID int64, selectionKey string) error
}
