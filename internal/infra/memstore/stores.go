package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

type storeRepo struct {
	st  *state
	now func() time.Time
}

func (r *storeRepo) Create(ctx context.Context, s model.Store) (model.Store, error) {
	now := r.now()
	s.ID = r.st.id()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.st.stores[s.ID] = s
	return s, nil
}

func (r *storeRepo) FindByID(ctx context.Context, storeID int64) (model.Store, error) {
	s, ok := r.st.stores[storeID]
	if !ok {
		return model.Store{}, repo.ErrNotFound
	}
	return s, nil
}

func (r *storeRepo) ListByOwner(ctx context.Context, ownerUserID int64) ([]model.Store, error) {
	out := []model.Store{}
	for _, s := range r.st.stores {
		if s.OwnerUserID == ownerUserID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type earningsRepo struct {
	st  *state
	now func() time.Time
}

func (r *earningsRepo) Credit(ctx context.Context, storeID int64, orderID int64, amount decimal.Decimal) (bool, error) {
	key := fmt.Sprintf("%d:%d", orderID, storeID)
	if _, done := r.st.credits[key]; done {
		return false, nil
	}
	s, ok := r.st.stores[storeID]
	if !ok {
		return false, repo.ErrNotFound
	}
	now := r.now()
	r.st.credits[key] = model.EarningCredit{ID: r.st.id(), OrderID: orderID, StoreID: storeID, Amount: amount, CreatedAt: now}
	s.CompletedOrders++
	s.TotalEarnings = s.TotalEarnings.Add(amount)
	s.UpdatedAt = now
	r.st.stores[storeID] = s
	return true, nil
}

type auditRepo struct {
	st  *state
	now func() time.Time
}

func (r *auditRepo) Create(ctx context.Context, log model.AuditLog) error {
	log.ID = r.st.id()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = r.now()
	}
	r.st.audits = append(r.st.audits, log)
	return nil
}

func (r *auditRepo) ListForResource(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	out := []model.AuditLog{}
	for i := len(r.st.audits) - 1; i >= 0; i-- {
		l := r.st.audits[i]
		if l.ResourceType != f.ResourceType || l.ResourceID != f.ResourceID {
			continue
		}
		if len(f.Actions) > 0 && !slices.Contains(f.Actions, l.Action) {
			continue
		}
		out = append(out, l)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
