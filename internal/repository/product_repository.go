package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	StoreID  *int64
	Sort     string
}

// 商品の永続化（保存・取得）だけを約束。
// FindByIDはバリアントと選択肢グループも読み込む。論理削除済みはErrNotFound。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	// Update は基本項目を更新し、子（バリアント/選択肢）はIDで突き合わせて追加・更新・削除する。
	Update(ctx context.Context, p model.Product) (model.Product, error)
	SoftDelete(ctx context.Context, id int64) error
}
