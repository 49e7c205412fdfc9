package memstore

import (
	"context"
	"sort"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

type cartRepo struct {
	st  *state
	now func() time.Time
}

func (r *cartRepo) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	if c, err := r.FindActiveByUserID(ctx, userID); err == nil {
		return c, nil
	}
	now := r.now()
	c := model.Cart{ID: r.st.id(), UserID: userID, Status: model.CartStatusActive, CreatedAt: now, UpdatedAt: now}
	r.st.carts[c.ID] = c
	return c, nil
}

func (r *cartRepo) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	for _, c := range r.st.carts {
		if c.UserID == userID && c.Status == model.CartStatusActive {
			return c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (r *cartRepo) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	c, ok := r.st.carts[cartID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	return c, nil
}

func (r *cartRepo) Clear(ctx context.Context, cartID int64) error {
	for id, it := range r.st.cartItems {
		if it.CartID == cartID {
			delete(r.st.cartItems, id)
		}
	}
	return nil
}

type cartItemRepo struct {
	st  *state
	now func() time.Time
}

func (r *cartItemRepo) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	out := []model.CartItem{}
	for _, it := range r.st.cartItems {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *cartItemRepo) find(cartID, productID int64, key string) (model.CartItem, bool) {
	for _, it := range r.st.cartItems {
		if it.CartID == cartID && it.ProductID == productID && it.SelectionKey == key {
			return it, true
		}
	}
	return model.CartItem{}, false
}

func (r *cartItemRepo) FindLine(ctx context.Context, cartID int64, productID int64, selectionKey string) (model.CartItem, error) {
	it, ok := r.find(cartID, productID, selectionKey)
	if !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (r *cartItemRepo) UpsertLine(ctx context.Context, cartID int64, productID int64, sel model.VariantSelection, addQty int64, unitPriceSnapshot decimal.Decimal) error {
	now := r.now()
	sel = sel.Normalize()
	if it, ok := r.find(cartID, productID, sel.Key()); ok {
		it.Quantity += addQty
		it.UnitPriceSnapshot = unitPriceSnapshot
		it.UpdatedAt = now
		r.st.cartItems[it.ID] = it
		return nil
	}
	it := model.CartItem{
		ID:                r.st.id(),
		CartID:            cartID,
		ProductID:         productID,
		SelectionKey:      sel.Key(),
		Selection:         sel,
		Quantity:          addQty,
		UnitPriceSnapshot: unitPriceSnapshot,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.st.cartItems[it.ID] = it
	return nil
}

func (r *cartItemRepo) SetLineQuantity(ctx context.Context, cartID int64, productID int64, selectionKey string, qty int64) (bool, error) {
	it, ok := r.find(cartID, productID, selectionKey)
	if !ok {
		return false, nil
	}
	it.Quantity = qty
	it.UpdatedAt = r.now()
	r.st.cartItems[it.ID] = it
	return true, nil
}

func (r *cartItemRepo) DeleteLine(ctx context.Context, cartID int64, productID int64, selectionKey string) error {
	if it, ok := r.find(cartID, productID, selectionKey); ok {
		delete(r.st.cartItems, it.ID)
	}
	return nil
}
