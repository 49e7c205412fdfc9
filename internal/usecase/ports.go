package usecase

import (
	"context"

	"storefront/internal/domain/model"
)

// Notifier は注文イベントの通知先（Kafka / ログ）。
// コミット後に呼ぶ。失敗しても注文の処理結果は変えない。
type Notifier interface {
	Notify(ctx context.Context, n model.OrderNotification) error
}

// CheckoutLocker は同じ顧客のチェックアウトを直列にする。
// 返したunlockは必ず呼ぶこと。
type CheckoutLocker interface {
	Lock(ctx context.Context, customerID int64) (unlock func(), err error)
}
