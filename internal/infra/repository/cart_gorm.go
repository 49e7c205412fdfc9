package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartGormRepository はカートとカート明細の両方を扱う。
type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ユーザーのACTIVEカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	findErr := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status = ?", userID, model.CartStatusActive).
		Order("id desc").
		First(&cart).Error
	if findErr == nil {
		return cart, nil
	}
	if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return model.Cart{}, findErr
	}

	// 無ければ作る
	now := time.Now()
	cart = model.Cart{
		UserID:    userID,
		Status:    model.CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&cart).Error; err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// ユーザーのACTIVEカートを取得
func (r *CartGormRepository) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.CartStatusActive).
		Order("id desc").
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).Where("id = ?", cartID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// 指定カートの明細を全削除
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

func (r *CartGormRepository) FindLine(ctx context.Context, cartID int64, productID int64, selectionKey string) (model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND selection_key = ?", cartID, productID, selectionKey).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

// 同じ明細は数量加算（ユニークキーで衝突したら足す）
func (r *CartGormRepository) UpsertLine(ctx context.Context, cartID int64, productID int64, sel model.VariantSelection, addQty int64, unitPriceSnapshot decimal.Decimal) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}
	sel = sel.Normalize()

	now := time.Now()
	item := model.CartItem{
		CartID:            cartID,
		ProductID:         productID,
		SelectionKey:      sel.Key(),
		Selection:         sel,
		Quantity:          addQty,
		UnitPriceSnapshot: unitPriceSnapshot,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "selection_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":            gorm.Expr("cart_items.quantity + EXCLUDED.quantity"),
			"unit_price_snapshot": gorm.Expr("EXCLUDED.unit_price_snapshot"),
			"updated_at":          now,
		}),
	}).Create(&item).Error
}

// 明細の数量を更新
func (r *CartGormRepository) SetLineQuantity(ctx context.Context, cartID int64, productID int64, selectionKey string, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ? AND selection_key = ?", cartID, productID, selectionKey).
		Update("quantity", qty)

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 明細を削除。無くても成功。
func (r *CartGormRepository) DeleteLine(ctx context.Context, cartID int64, productID int64, selectionKey string) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND selection_key = ?", cartID, productID, selectionKey).
		Delete(&model.CartItem{}).Error
}
