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

type StoreGormRepository struct {
	db *gorm.DB
}

func NewStoreGormRepository(db *gorm.DB) *StoreGormRepository {
	return &StoreGormRepository{db: db}
}

func (r *StoreGormRepository) Create(ctx context.Context, s model.Store) (model.Store, error) {
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return model.Store{}, err
	}
	return s, nil
}

func (r *StoreGormRepository) FindByID(ctx context.Context, storeID int64) (model.Store, error) {
	var s model.Store
	err := r.db.WithContext(ctx).Where("id = ?", storeID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Store{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Store{}, err
	}
	return s, nil
}

func (r *StoreGormRepository) ListByOwner(ctx context.Context, ownerUserID int64) ([]model.Store, error) {
	var out []model.Store
	if err := r.db.WithContext(ctx).Where("owner_user_id = ?", ownerUserID).Order("id asc").Find(&out).Error; err != nil {
		return []model.Store{}, err
	}
	return out, nil
}

// Credit は earning_credits に1行入れられたときだけストアの集計を増やす。
func (r *StoreGormRepository) Credit(ctx context.Context, storeID int64, orderID int64, amount decimal.Decimal) (bool, error) {
	db := r.db.WithContext(ctx)

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "store_id"}},
		DoNothing: true,
	}).Create(&model.EarningCredit{OrderID: orderID, StoreID: storeID, Amount: amount, CreatedAt: time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		//計上済み
		return false, nil
	}

	upd := db.Model(&model.Store{}).Where("id = ?", storeID).Updates(map[string]interface{}{
		"completed_orders": gorm.Expr("completed_orders + 1"),
		"total_earnings":   gorm.Expr("total_earnings + ?", amount),
	})
	if upd.Error != nil {
		return false, upd.Error
	}
	if upd.RowsAffected == 0 {
		return false, repo.ErrNotFound
	}
	return true, nil
}
