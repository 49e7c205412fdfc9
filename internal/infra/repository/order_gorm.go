package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	//ストアの明細を含む注文
	if len(f.StoreIDs) > 0 {
		q = q.Where("id IN (?)", r.db.Model(&model.OrderItem{}).Select("order_id").Where("store_id IN ?", f.StoreIDs))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("created_at desc").Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	order.Items = nil
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&order).Error; err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, customerID int64, key string) (model.Order, bool, error) {
	if key == "" {
		return model.Order{}, false, nil
	}
	var o model.Order
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND idempotency_key = ?", customerID, key).
		First(&o).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

// 現在のstatusがFromのときだけ更新する。0件ならfalse。
func (r *OrderGormRepository) TransitionStatus(ctx context.Context, orderID int64, ch repo.StatusChange) (bool, error) {
	fields := map[string]interface{}{
		"status":     ch.To,
		"updated_at": ch.At,
	}
	switch ch.To {
	case model.OrderStatusPlaced:
		fields["placed_at"] = ch.At
	case model.OrderStatusShipped:
		fields["shipped_at"] = ch.At
	case model.OrderStatusDelivered:
		fields["delivered_at"] = ch.At
	case model.OrderStatusCanceled:
		fields["canceled_at"] = ch.At
	}
	if p := ch.Placement; p != nil {
		fields["customer_name"] = p.CustomerName
		fields["contact_number"] = p.ContactNumber
		fields["delivery_location"] = p.DeliveryLocation
		fields["payment_method"] = p.PaymentMethod
		fields["notes"] = p.Notes
		fields["payment_status"] = p.PaymentStatus
	}
	if ch.PaymentStatus != nil {
		fields["payment_status"] = *ch.PaymentStatus
	}

	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status IN ?", orderID, ch.From).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	//注文自体が無いのか、状態が違うのか
	if _, err := r.FindByID(ctx, orderID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *OrderGormRepository) UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status <> ?", orderID, model.OrderStatusCanceled).
		Update("payment_status", status)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, orderID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *OrderGormRepository) ListPendingByCart(ctx context.Context, cartID int64) ([]model.Order, error) {
	var out []model.Order
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND status = ?", cartID, model.OrderStatusPending).
		Order("created_at desc").Order("id desc").
		Find(&out).Error
	if err != nil {
		return []model.Order{}, err
	}
	return out, nil
}

// 古い順に返す
func (r *OrderGormRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.OrderStatusPending, createdBefore).
		Order("created_at asc").Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.Order
	if err := q.Find(&out).Error; err != nil {
		return []model.Order{}, err
	}
	return out, nil
}

func (r *OrderGormRepository) ExistsOpenWithProduct(ctx context.Context, productID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("order_items").
		Joins("join orders on orders.id = order_items.order_id").
		Where("order_items.product_id = ? AND orders.status IN ?", productID, model.OpenOrderStatuses()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *OrderGormRepository) AppendHistory(ctx context.Context, h model.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(&h).Error
}

func (r *OrderGormRepository) ListHistory(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	var out []model.OrderStatusHistory
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&out).Error; err != nil {
		return []model.OrderStatusHistory{}, err
	}
	return out, nil
}
