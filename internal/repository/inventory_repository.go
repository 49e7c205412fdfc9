package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 在庫を設定する対象。VariantID/OptionIDが両方nilなら基本在庫。
type StockTarget struct {
	ProductID int64
	VariantID *int64
	OptionID  *int64
}

// 在庫の増減。複数行を触るのでトランザクション内で呼ぶこと。
type InventoryRepository interface {
	// 在庫が足りるときだけ減算（バリアント行 or 基本行 + 選択肢行）。
	// 1行でも足りなければfalse。途中まで減った分はTxのrollbackで戻す。
	DecreaseStockIfEnough(ctx context.Context, productID int64, sel model.VariantSelection, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, productID int64, sel model.VariantSelection, qty int64) error

	// 在庫の現在値を設定し、変更前の値を返す
	SetStock(ctx context.Context, target StockTarget, newStock int64) (int64, error)

	// 在庫から販売状態を再計算して保存
	RefreshAvailability(ctx context.Context, productID int64) (model.Availability, error)

	// 在庫戻しの記録。既に同じイベントで戻していればfalse。
	MarkRestored(ctx context.Context, eventKey string, orderID int64) (bool, error)

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
