package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 在庫行ごとの条件付き更新。stock >= qty のときだけ減らす。
func (r *InventoryGormRepository) decrease(ctx context.Context, m interface{}, where string, args []interface{}, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(m).
		Where(where, args...).
		Where("stock >= ?", qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 在庫が足りるときだけ減らす（バリアント行 or 基本行、選択肢行）。
// 1行でも足りなければfalse。呼び出し側がrollbackする。
func (r *InventoryGormRepository) DecreaseStockIfEnough(ctx context.Context, productID int64, sel model.VariantSelection, qty int64) (bool, error) {
	var ok bool
	var err error
	if sel.VariantID != 0 {
		ok, err = r.decrease(ctx, &model.ProductVariant{}, "id = ? AND product_id = ?", []interface{}{sel.VariantID, productID}, qty)
	} else {
		ok, err = r.decrease(ctx, &model.Product{}, "id = ?", []interface{}{productID}, qty)
	}
	if err != nil || !ok {
		return false, err
	}

	for _, c := range sel.Choices {
		ok, err := r.decrease(ctx, &model.ChoiceOption{}, "id = ? AND group_id = ? AND product_id = ?",
			[]interface{}{c.OptionID, c.GroupID, productID}, qty)
		if err != nil || !ok {
			return false, err
		}
	}

	if _, err := r.RefreshAvailability(ctx, productID); err != nil {
		return false, err
	}
	return true, nil
}

// 在庫戻し（キャンセル）。消えたバリアント/選択肢は飛ばす。
func (r *InventoryGormRepository) IncreaseStock(ctx context.Context, productID int64, sel model.VariantSelection, qty int64) error {
	db := r.db.WithContext(ctx)
	inc := gorm.Expr("stock + ?", qty)

	if sel.VariantID != 0 {
		if err := db.Model(&model.ProductVariant{}).
			Where("id = ? AND product_id = ?", sel.VariantID, productID).
			Update("stock", inc).Error; err != nil {
			return err
		}
	} else {
		// 論理削除された商品にも戻す
		if err := db.Unscoped().Model(&model.Product{}).
			Where("id = ?", productID).
			Update("stock", inc).Error; err != nil {
			return err
		}
	}

	for _, c := range sel.Choices {
		if err := db.Model(&model.ChoiceOption{}).
			Where("id = ? AND group_id = ? AND product_id = ?", c.OptionID, c.GroupID, productID).
			Update("stock", inc).Error; err != nil {
			return err
		}
	}

	_, err := r.refresh(db.Unscoped(), productID)
	return err
}

// 在庫の現在値を設定し、変更前の値を返す
func (r *InventoryGormRepository) SetStock(ctx context.Context, target repo.StockTarget, newStock int64) (int64, error) {
	db := r.db.WithContext(ctx)

	var m interface{}
	var cond string
	var args []interface{}
	switch {
	case target.VariantID != nil:
		m, cond, args = &model.ProductVariant{}, "id = ? AND product_id = ?", []interface{}{*target.VariantID, target.ProductID}
	case target.OptionID != nil:
		m, cond, args = &model.ChoiceOption{}, "id = ? AND product_id = ?", []interface{}{*target.OptionID, target.ProductID}
	default:
		m, cond, args = &model.Product{}, "id = ?", []interface{}{target.ProductID}
	}

	//現在の在庫を行ロックして取得
	var row struct{ Stock int64 }
	err := db.Model(m).Clauses(clause.Locking{Strength: "UPDATE"}).Select("stock").Where(cond, args...).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, repo.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	res := db.Model(m).Where(cond, args...).Update("stock", newStock)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, repo.ErrNotFound
	}

	if _, err := r.RefreshAvailability(ctx, target.ProductID); err != nil {
		return 0, err
	}
	return row.Stock, nil
}

// 在庫から販売状態を再計算して保存
func (r *InventoryGormRepository) RefreshAvailability(ctx context.Context, productID int64) (model.Availability, error) {
	return r.refresh(r.db.WithContext(ctx), productID)
}

func (r *InventoryGormRepository) refresh(db *gorm.DB, productID int64) (model.Availability, error) {
	var p model.Product
	err := db.Preload("Variants").Select("id", "stock").First(&p, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	a := p.ComputeAvailability()
	if err := db.Model(&model.Product{}).Where("id = ?", productID).Update("availability", a).Error; err != nil {
		return "", err
	}
	return a, nil
}

// 在庫戻しの記録。event_keyが既にあればfalse。
func (r *InventoryGormRepository) MarkRestored(ctx context.Context, eventKey string, orderID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_key"}}, DoNothing: true}).
		Create(&model.StockRestoration{EventKey: eventKey, OrderID: orderID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 調整履歴作成
func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return err
	}
	return nil
}
