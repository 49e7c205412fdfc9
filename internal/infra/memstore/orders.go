package memstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

var errDuplicateKey = errors.New("duplicate idempotency key")

type orderRepo struct {
	st  *state
	now func() time.Time
}

func (r *orderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r *orderRepo) hasStore(orderID int64, storeIDs []int64) bool {
	for _, it := range r.st.orderItems[orderID] {
		for _, id := range storeIDs {
			if it.StoreID == id {
				return true
			}
		}
	}
	return false
}

func (r *orderRepo) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	hits := []model.Order{}
	for _, o := range r.st.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		if len(f.StoreIDs) > 0 && !r.hasStore(o.ID, f.StoreIDs) {
			continue
		}
		hits = append(hits, o)
	}
	sortNewestFirst(hits)
	return paginate(hits, f.Page, f.Limit), int64(len(hits)), nil
}

func sortNewestFirst(orders []model.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

func (r *orderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	if _, found, _ := r.FindByIdempotencyKey(ctx, order.CustomerID, order.IdempotencyKey); found {
		return 0, errDuplicateKey
	}
	order.ID = r.st.id()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = r.now()
	}
	order.UpdatedAt = order.CreatedAt
	order.Items = nil
	r.st.orders[order.ID] = order
	return order.ID, nil
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, customerID int64, key string) (model.Order, bool, error) {
	if key == "" {
		return model.Order{}, false, nil
	}
	for _, o := range r.st.orders {
		if o.CustomerID == customerID && o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

func (r *orderRepo) TransitionStatus(ctx context.Context, orderID int64, ch repo.StatusChange) (bool, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return false, repo.ErrNotFound
	}
	allowed := false
	for _, s := range ch.From {
		if o.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}

	at := ch.At
	o.Status = ch.To
	o.UpdatedAt = at
	switch ch.To {
	case model.OrderStatusPlaced:
		o.PlacedAt = &at
	case model.OrderStatusShipped:
		o.ShippedAt = &at
	case model.OrderStatusDelivered:
		o.DeliveredAt = &at
	case model.OrderStatusCanceled:
		o.CanceledAt = &at
	}
	if p := ch.Placement; p != nil {
		o.CustomerName = p.CustomerName
		o.ContactNumber = p.ContactNumber
		o.DeliveryLocation = p.DeliveryLocation
		o.PaymentMethod = p.PaymentMethod
		o.Notes = p.Notes
		o.PaymentStatus = p.PaymentStatus
	}
	if ch.PaymentStatus != nil {
		o.PaymentStatus = *ch.PaymentStatus
	}
	r.st.orders[orderID] = o
	return true, nil
}

func (r *orderRepo) UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) (bool, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return false, repo.ErrNotFound
	}
	if o.Status == model.OrderStatusCanceled {
		return false, nil
	}
	o.PaymentStatus = status
	o.UpdatedAt = r.now()
	r.st.orders[orderID] = o
	return true, nil
}

func (r *orderRepo) ListPendingByCart(ctx context.Context, cartID int64) ([]model.Order, error) {
	out := []model.Order{}
	for _, o := range r.st.orders {
		if o.CartID != nil && *o.CartID == cartID && o.Status == model.OrderStatusPending {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *orderRepo) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	out := []model.Order{}
	for _, o := range r.st.orders {
		if o.Status == model.OrderStatusPending && o.CreatedAt.Before(createdBefore) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *orderRepo) ExistsOpenWithProduct(ctx context.Context, productID int64) (bool, error) {
	open := model.OpenOrderStatuses()
	for id, o := range r.st.orders {
		isOpen := false
		for _, s := range open {
			if o.Status == s {
				isOpen = true
			}
		}
		if !isOpen {
			continue
		}
		for _, it := range r.st.orderItems[id] {
			if it.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *orderRepo) AppendHistory(ctx context.Context, h model.OrderStatusHistory) error {
	h.ID = r.st.id()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = r.now()
	}
	r.st.history[h.OrderID] = append(r.st.history[h.OrderID], h)
	return nil
}

func (r *orderRepo) ListHistory(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	return append([]model.OrderStatusHistory{}, r.st.history[orderID]...), nil
}

type orderItemRepo struct {
	st *state
}

func (r *orderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	for _, it := range items {
		it.ID = r.st.id()
		it.OrderID = orderID
		r.st.orderItems[orderID] = append(r.st.orderItems[orderID], it)
	}
	return nil
}

func (r *orderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	return append([]model.OrderItem{}, r.st.orderItems[orderID]...), nil
}

func (r *orderItemRepo) ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	out := make(map[int64][]model.OrderItem, len(orderIDs))
	for _, id := range orderIDs {
		if items := r.st.orderItems[id]; len(items) > 0 {
			out[id] = append([]model.OrderItem{}, items...)
		}
	}
	return out, nil
}
